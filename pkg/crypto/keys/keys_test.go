package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	for _, curve := range []Curve{Secp256r1, Secp256k1} {
		priv, err := NewPrivateKey(curve)
		require.NoError(t, err)
		msg := []byte("payload to authorize")
		sig, err := priv.Sign(msg)
		require.NoError(t, err)
		require.Len(t, sig, 64)

		assert.True(t, priv.PublicKey().Verify(msg, sig))
		assert.False(t, priv.PublicKey().Verify([]byte("other payload"), sig))

		// A tampered signature never verifies.
		sig[10] ^= 0xFF
		assert.False(t, priv.PublicKey().Verify(msg, sig))
	}
}

func TestSignDeterministic(t *testing.T) {
	priv, err := NewPrivateKey(Secp256r1)
	require.NoError(t, err)
	msg := []byte("same message")
	sig1, err := priv.Sign(msg)
	require.NoError(t, err)
	sig2, err := priv.Sign(msg)
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)
}

func TestPublicKeyEncodeDecode(t *testing.T) {
	for _, curve := range []Curve{Secp256r1, Secp256k1} {
		priv, err := NewPrivateKey(curve)
		require.NoError(t, err)
		pub := priv.PublicKey()
		b := pub.Bytes()
		require.Len(t, b, 33)

		got, err := DecodeBytes(b, curve)
		require.NoError(t, err)
		assert.Zero(t, pub.X.Cmp(got.X))
		assert.Zero(t, pub.Y.Cmp(got.Y))
	}
}

func TestDecodeBytesRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes([]byte{0x02, 0x01}, Secp256r1)
	require.Error(t, err)
	_, err = DecodeBytes(make([]byte, 33), Secp256r1)
	require.Error(t, err)
}

func TestPrivateKeyFromBytesRoundTrip(t *testing.T) {
	priv, err := NewPrivateKey(Secp256r1)
	require.NoError(t, err)
	got, err := NewPrivateKeyFromBytes(priv.Bytes(), Secp256r1)
	require.NoError(t, err)
	assert.Equal(t, priv.Bytes(), got.Bytes())
	assert.Equal(t, priv.PublicKey().Bytes(), got.PublicKey().Bytes())

	_, err = NewPrivateKeyFromBytes([]byte{1, 2, 3}, Secp256r1)
	require.Error(t, err)
}

func TestVerificationScriptAndScriptHash(t *testing.T) {
	priv, err := NewPrivateKey(Secp256r1)
	require.NoError(t, err)
	pub := priv.PublicKey()

	script := pub.GetVerificationScript()
	require.NotEmpty(t, script)
	// The script ends with SYSCALL into System.Crypto.CheckSig.
	assert.Equal(t, CheckSigSyscallHash, script[len(script)-4:])
	assert.NotEqual(t, pub.GetScriptHash(), [20]byte{})

	// Same key always yields the same account hash.
	again, err := DecodeBytes(pub.Bytes(), Secp256r1)
	require.NoError(t, err)
	assert.Equal(t, pub.GetScriptHash(), again.GetScriptHash())
}

func TestCreateMultisigVerificationScript(t *testing.T) {
	var pubs []*PublicKey
	for i := 0; i < 3; i++ {
		priv, err := NewPrivateKey(Secp256r1)
		require.NoError(t, err)
		pubs = append(pubs, priv.PublicKey())
	}

	script, err := CreateMultisigVerificationScript(2, pubs)
	require.NoError(t, err)
	require.NotEmpty(t, script)

	// Key order does not change the script (keys are sorted).
	reversed := []*PublicKey{pubs[2], pubs[0], pubs[1]}
	script2, err := CreateMultisigVerificationScript(2, reversed)
	require.NoError(t, err)
	assert.Equal(t, script, script2)

	_, err = CreateMultisigVerificationScript(0, pubs)
	require.Error(t, err)
	_, err = CreateMultisigVerificationScript(4, pubs)
	require.Error(t, err)
}

func TestDestroyZeroesKey(t *testing.T) {
	priv, err := NewPrivateKey(Secp256r1)
	require.NoError(t, err)
	priv.Destroy()
	assert.Equal(t, make([]byte, 32), priv.Bytes())
}
