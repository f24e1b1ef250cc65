package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iop "github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/payload"
	"github.com/n3fullnode/neofull/pkg/util"
)

const testMagic uint32 = 42

func encodeDecode(t *testing.T, m *Message) *Message {
	t.Helper()
	b, err := m.Bytes()
	require.NoError(t, err)

	got := &Message{}
	r := iop.NewBinReaderFromBuf(b)
	require.NoError(t, got.Decode(r, testMagic, MaxPayloadSize))
	require.NoError(t, got.DecodePayload())
	return got
}

func TestMessageVersionRoundTrip(t *testing.T) {
	ver := payload.NewVersion(testMagic, 1234, "/test-agent/", 20333, 77, 1600000000)
	m := NewMessage(testMagic, CMDVersion, ver)
	got := encodeDecode(t, m)

	require.Equal(t, CMDVersion, got.Command)
	gotVer, ok := got.Payload.(*payload.Version)
	require.True(t, ok)
	assert.Equal(t, ver.Magic, gotVer.Magic)
	assert.Equal(t, ver.Nonce, gotVer.Nonce)
	assert.Equal(t, ver.UserAgent, gotVer.UserAgent)
	assert.Equal(t, uint32(77), gotVer.StartHeight())
	assert.Equal(t, uint16(20333), gotVer.TCPPort())
}

func TestMessageNoPayloadCommands(t *testing.T) {
	for _, cmd := range []CommandType{CMDVerack, CMDGetAddr, CMDMempool} {
		m := NewMessage(testMagic, cmd, nil)
		got := encodeDecode(t, m)
		assert.Equal(t, cmd, got.Command)
		assert.Nil(t, got.Payload)
	}
}

func TestMessageRejectsWrongMagic(t *testing.T) {
	m := NewMessage(testMagic, CMDVerack, nil)
	b, err := m.Bytes()
	require.NoError(t, err)

	got := &Message{}
	r := iop.NewBinReaderFromBuf(b)
	require.ErrorIs(t, got.Decode(r, testMagic+1, MaxPayloadSize), ErrInvalidMagic)
}

func TestMessageRejectsOversizedPayload(t *testing.T) {
	inv := payload.NewInventory(payload.TXType, []util.Uint256{{1}})
	m := NewMessage(testMagic, CMDInv, inv)
	b, err := m.Bytes()
	require.NoError(t, err)

	got := &Message{}
	r := iop.NewBinReaderFromBuf(b)
	// A limit below the actual payload size must fail the read, not
	// truncate it.
	require.Error(t, got.Decode(r, testMagic, 4))
}

func TestMessageUnknownCommand(t *testing.T) {
	m := &Message{Magic: testMagic, Command: CommandType(0xF0)}
	b, err := m.Bytes()
	require.NoError(t, err)

	got := &Message{}
	r := iop.NewBinReaderFromBuf(b)
	require.NoError(t, got.Decode(r, testMagic, MaxPayloadSize))
	require.Error(t, got.DecodePayload())
}

func TestInventoryRoundTrip(t *testing.T) {
	hashes := []util.Uint256{{1}, {2}, {3}}
	m := NewMessage(testMagic, CMDInv, payload.NewInventory(payload.BlockType, hashes))
	got := encodeDecode(t, m)
	inv, ok := got.Payload.(*payload.Inventory)
	require.True(t, ok)
	assert.Equal(t, payload.BlockType, inv.Type)
	assert.Equal(t, hashes, inv.Hashes)
}

func TestPingRoundTrip(t *testing.T) {
	m := NewMessage(testMagic, CMDPing, payload.NewPing(100, 555, 1600000000))
	got := encodeDecode(t, m)
	p, ok := got.Payload.(*payload.Ping)
	require.True(t, ok)
	assert.Equal(t, uint32(100), p.LastBlockIndex)
	assert.Equal(t, uint32(555), p.Nonce)
}
