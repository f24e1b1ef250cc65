package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

func TestManifestIsValid(t *testing.T) {
	m := DefaultManifest("testcontract")
	h := util.Uint160{1, 2, 3}
	require.NoError(t, m.IsValid(h))

	m.Name = ""
	assert.Error(t, m.IsValid(h))
}

func TestManifestGroupsAreValid(t *testing.T) {
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	h := util.Uint160{9, 9, 9}
	sig, err := priv.Sign(h.BytesBE())
	require.NoError(t, err)

	m := DefaultManifest("grouped")
	m.Groups = Groups{{PublicKey: priv.PublicKey(), Signature: sig}}
	require.NoError(t, m.IsValid(h))

	m.Groups[0].Signature = append([]byte{}, sig...)
	m.Groups[0].Signature[0] ^= 0xff
	assert.Error(t, m.IsValid(h))
}

func TestManifestCanCallWildcard(t *testing.T) {
	m := DefaultManifest("caller")
	assert.True(t, m.CanCall(util.Uint160{1}, nil, "anyMethod"))
}

func TestManifestCanCallRestrictedHash(t *testing.T) {
	target := util.Uint160{7}
	m := &Manifest{Name: "restricted"}
	p := NewPermission(PermissionHash, target)
	p.Methods.Add("transfer")
	m.Permissions = []Permission{*p}

	assert.True(t, m.CanCall(target, nil, "transfer"))
	assert.False(t, m.CanCall(target, nil, "burn"))
	assert.False(t, m.CanCall(util.Uint160{8}, nil, "transfer"))
}

func TestManifestDuplicateMethodRejected(t *testing.T) {
	m := DefaultManifest("dup")
	m.ABI.Methods = []Method{
		{Name: "foo", Parameters: nil},
		{Name: "foo", Parameters: nil},
	}
	assert.Error(t, m.IsValid(util.Uint160{1}))
}
