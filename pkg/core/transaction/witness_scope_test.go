package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopesFromByte(t *testing.T) {
	s, err := ScopesFromByte(0x01)
	require.NoError(t, err)
	assert.Equal(t, CalledByEntry, s)

	s, err = ScopesFromByte(0x10 | 0x20)
	require.NoError(t, err)
	assert.Equal(t, CustomContracts|CustomGroups, s)

	_, err = ScopesFromByte(0x80 | 0x01)
	assert.Error(t, err)

	_, err = ScopesFromByte(0x04)
	assert.Error(t, err)
}

func TestScopesFromString(t *testing.T) {
	s, err := ScopesFromString("CalledByEntry, CustomContracts")
	require.NoError(t, err)
	assert.Equal(t, CalledByEntry|CustomContracts, s)

	_, err = ScopesFromString("Bogus")
	assert.Error(t, err)

	s, err = ScopesFromString("")
	require.NoError(t, err)
	assert.Equal(t, None, s)
}

func TestWitnessScopeString(t *testing.T) {
	assert.Equal(t, "Global", Global.String())
	assert.Equal(t, "CalledByEntry", CalledByEntry.String())
}
