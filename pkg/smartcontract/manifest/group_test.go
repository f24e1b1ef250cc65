package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

func TestGroupsAreValid(t *testing.T) {
	h := util.Uint160{42, 42, 42}
	priv1, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	priv2, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)

	sig1, err := priv1.Sign(h.BytesBE())
	require.NoError(t, err)
	sig2, err := priv2.Sign(h.BytesBE())
	require.NoError(t, err)

	good1 := Group{PublicKey: priv1.PublicKey(), Signature: sig1}
	good2 := Group{PublicKey: priv2.PublicKey(), Signature: sig2}
	bad := Group{PublicKey: priv1.PublicKey(), Signature: sig2}

	assert.NoError(t, Groups{good1}.AreValid(h))
	assert.NoError(t, Groups{good1, good2}.AreValid(h))
	assert.Error(t, Groups{bad}.AreValid(h))
	assert.Error(t, Groups{good1, good1}.AreValid(h))
}

func TestGroupsContains(t *testing.T) {
	priv1, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	priv2, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	priv3, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)

	gps := Groups{
		{PublicKey: priv1.PublicKey()},
		{PublicKey: priv2.PublicKey()},
	}
	assert.True(t, gps.Contains(priv2.PublicKey()))
	assert.False(t, gps.Contains(priv3.PublicKey()))
}
