package stackitem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquality(t *testing.T) {
	assert.True(t, NewInteger(7).Equals(NewInteger(7)))
	assert.False(t, NewInteger(7).Equals(NewInteger(8)))

	// Byte strings compare by content.
	assert.True(t, NewByteString([]byte("abc")).Equals(NewByteString([]byte("abc"))))
	assert.True(t, NewNull().Equals(NewNull()))

	// Arrays compare by identity, structs by value.
	a := NewArray([]Item{NewInteger(1)})
	b := NewArray([]Item{NewInteger(1)})
	assert.False(t, a.Equals(b))
	assert.True(t, a.Equals(a))

	s1 := NewStruct([]Item{NewInteger(1), NewByteString([]byte("x"))})
	s2 := NewStruct([]Item{NewInteger(1), NewByteString([]byte("x"))})
	assert.True(t, s1.Equals(s2))
}

func TestTryBool(t *testing.T) {
	cases := []struct {
		it   Item
		want bool
	}{
		{NewNull(), false},
		{NewBool(true), true},
		{NewInteger(0), false},
		{NewInteger(-1), true},
		{NewByteString(nil), false},
		{NewByteString([]byte{0, 0}), false},
		{NewByteString([]byte{0, 1}), true},
		{NewArray(nil), true},
	}
	for _, tc := range cases {
		got, err := tc.it.TryBool()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v", tc.it)
	}
}

func TestConvertTo(t *testing.T) {
	n, err := ConvertTo(NewInteger(1), BooleanT)
	require.NoError(t, err)
	assert.Equal(t, NewBool(true), n)

	b, err := ConvertTo(NewByteString([]byte{5}), IntegerT)
	require.NoError(t, err)
	got, err := ToBigInteger(b)
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(big.NewInt(5)))

	// Arrays have no byte representation.
	_, err = ConvertTo(NewArray(nil), ByteStringT)
	require.Error(t, err)
}

func TestMapInsertionOrder(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Set(NewByteString([]byte("b")), NewInteger(2)))
	require.NoError(t, m.Set(NewByteString([]byte("a")), NewInteger(1)))
	require.NoError(t, m.Set(NewByteString([]byte("c")), NewInteger(3)))

	var keys []string
	for _, e := range m.elems {
		b, _ := e.Key.Bytes()
		keys = append(keys, string(b))
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestMapKeyRestriction(t *testing.T) {
	m := NewMap()
	require.Error(t, m.Set(NewArray(nil), NewInteger(1)))
	require.NoError(t, m.Set(NewInteger(1), NewInteger(1)))
}

func TestBufferMaxSize(t *testing.T) {
	buf := NewBuffer(make([]byte, 10)).(*Buffer)
	require.Error(t, buf.SetBytes(make([]byte, MaxSize+1)))
	require.NoError(t, buf.SetBytes(make([]byte, MaxSize)))
}

func TestSerializeRoundTrip(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Set(NewByteString([]byte("k")), NewInteger(12345)))

	cases := []Item{
		NewNull(),
		NewBool(true),
		NewBool(false),
		NewInteger(0),
		NewInteger(-129),
		NewInteger(1 << 40),
		NewByteString([]byte("hello")),
		NewBuffer([]byte{1, 2, 3}),
		NewArray([]Item{NewInteger(1), NewByteString([]byte("x")), NewNull()}),
		NewStruct([]Item{NewBool(true), NewArray(nil)}),
		m,
	}
	for _, it := range cases {
		b, err := Serialize(it)
		require.NoError(t, err, "%v", it)
		got, err := Deserialize(b)
		require.NoError(t, err, "%v", it)
		// Struct equality is by value; Array/Map decode to fresh
		// identities, so compare their encodings instead.
		b2, err := Serialize(got)
		require.NoError(t, err)
		assert.Equal(t, b, b2, "%v", it)
	}
}

func TestSerializeRejectsUnserializable(t *testing.T) {
	_, err := Serialize(NewPointer(0, []byte{1}))
	require.ErrorIs(t, err, ErrUnserializable)

	_, err = Serialize(NewInterop(42))
	require.ErrorIs(t, err, ErrUnserializable)
}

func TestSerializeRejectsCycle(t *testing.T) {
	a := NewArray(nil).(*Array)
	require.NoError(t, a.Append(a))
	_, err := Serialize(a)
	require.Error(t, err)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	_, err := Deserialize([]byte{0xFE})
	require.Error(t, err)

	_, err = Deserialize(nil)
	require.Error(t, err)
}
