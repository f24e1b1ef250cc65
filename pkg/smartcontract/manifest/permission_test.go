package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

func TestNewPermissionPanicsOnBadArgs(t *testing.T) {
	assert.Panics(t, func() { NewPermission(PermissionWildcard, util.Uint160{}) })
	assert.Panics(t, func() { NewPermission(PermissionHash) })
	assert.Panics(t, func() { NewPermission(PermissionHash, 1) })
	assert.Panics(t, func() { NewPermission(PermissionGroup) })
}

func TestPermissionJSONWildcard(t *testing.T) {
	p := NewPermission(PermissionWildcard)
	p.Methods.Restrict()
	data, err := json.Marshal(p)
	require.NoError(t, err)

	got := &Permission{}
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, PermissionWildcard, got.Contract.Type)
	assert.Empty(t, got.Methods.Value)
}

func TestPermissionJSONHash(t *testing.T) {
	h := util.Uint160{1, 2, 3}
	p := NewPermission(PermissionHash, h)
	p.Methods.Add("transfer")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	got := &Permission{}
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, PermissionHash, got.Contract.Type)
	assert.Equal(t, h, got.Contract.Value.(util.Uint160))
	assert.True(t, got.Methods.Contains("transfer"))
}

func TestPermissionDescGroupJSON(t *testing.T) {
	priv, err := keys.NewPrivateKey(keys.Secp256r1)
	require.NoError(t, err)
	p := NewPermission(PermissionGroup, priv.PublicKey())
	data, err := json.Marshal(p.Contract)
	require.NoError(t, err)

	got := &PermissionDesc{}
	require.NoError(t, json.Unmarshal(data, got))
	assert.Equal(t, PermissionGroup, got.Type)
}

func TestWildStringsContains(t *testing.T) {
	var w WildStrings
	assert.True(t, w.Contains("anything"))

	w.Restrict()
	assert.False(t, w.Contains("anything"))

	w.Add("ok")
	assert.True(t, w.Contains("ok"))
	assert.False(t, w.Contains("no"))
}
