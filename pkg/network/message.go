package network

import (
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/core/block"
	"github.com/n3fullnode/neofull/pkg/core/transaction"
	iop "github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/network/payload"
)

// CommandType identifies the payload shape carried in a Message, the
// command byte of the frame header.
type CommandType byte

// The full command set a full node must speak.
const (
	CMDVersion CommandType = iota
	CMDVerack
	CMDGetAddr
	CMDAddr
	CMDPing
	CMDPong
	CMDGetHeaders
	CMDHeaders
	CMDGetBlocks
	CMDMempool
	CMDInv
	CMDGetData
	CMDNotFound
	CMDGetBlockByIndex
	CMDTX
	CMDBlock
	CMDExtensible
	CMDReject
	CMDFilterLoad
	CMDFilterAdd
	CMDFilterClear
	CMDMerkleBlock
)

func (c CommandType) String() string {
	switch c {
	case CMDVersion:
		return "version"
	case CMDVerack:
		return "verack"
	case CMDGetAddr:
		return "getaddr"
	case CMDAddr:
		return "addr"
	case CMDPing:
		return "ping"
	case CMDPong:
		return "pong"
	case CMDGetHeaders:
		return "getheaders"
	case CMDHeaders:
		return "headers"
	case CMDGetBlocks:
		return "getblocks"
	case CMDMempool:
		return "mempool"
	case CMDInv:
		return "inv"
	case CMDGetData:
		return "getdata"
	case CMDNotFound:
		return "notfound"
	case CMDGetBlockByIndex:
		return "getblockbyindex"
	case CMDTX:
		return "tx"
	case CMDBlock:
		return "block"
	case CMDExtensible:
		return "extensible"
	case CMDReject:
		return "reject"
	case CMDFilterLoad:
		return "filterload"
	case CMDFilterAdd:
		return "filteradd"
	case CMDFilterClear:
		return "filterclear"
	case CMDMerkleBlock:
		return "merkleblock"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// MaxPayloadSize is the hard ceiling on a single frame's payload,
// independent of any per-network configured quota: no message may
// ever exceed this regardless of configuration.
const MaxPayloadSize = 32 * 1024 * 1024

// MessageFlags modifies how a Message's payload is interpreted;
// unused by this implementation beyond the zero value but kept on the
// wire for forward compatibility with compressed payload variants.
type MessageFlags byte

// ErrInvalidMagic is returned when a decoded frame's magic doesn't
// match the network this node is configured for.
var ErrInvalidMagic = errors.New("network: invalid magic")

// ErrOversizedPayload is returned when a frame's declared payload
// length exceeds MaxPayloadSize.
var ErrOversizedPayload = errors.New("network: oversized payload")

// Message is one length-prefixed P2P frame: a magic-tagged header
// plus an opaque payload this package's caller decodes according to
// Command.
type Message struct {
	Magic   uint32
	Command CommandType
	Flags   MessageFlags

	Payload ioSerializable
	raw     []byte
}

// ioSerializable is a local alias for pkg/io's Serializable.
type ioSerializable = iop.Serializable

// NewMessage builds an outgoing frame for p.
func NewMessage(magic uint32, cmd CommandType, p ioSerializable) *Message {
	return &Message{Magic: magic, Command: cmd, Payload: p}
}

// Encode writes the frame's header and payload to w.
func (m *Message) Encode(w *iop.BinWriter) error {
	var buf *iop.BufBinWriter
	if m.Payload != nil {
		buf = iop.NewBufBinWriter()
		m.Payload.EncodeBinary(buf.BinWriter)
		if buf.Err != nil {
			return buf.Err
		}
	}
	var body []byte
	if buf != nil {
		body = buf.Bytes()
	}
	if len(body) > MaxPayloadSize {
		return ErrOversizedPayload
	}
	w.WriteU32LE(m.Magic)
	w.WriteB(byte(m.Command))
	w.WriteB(byte(m.Flags))
	w.WriteVarBytes(body)
	return w.Err
}

// Bytes encodes the message into a standalone byte slice.
func (m *Message) Bytes() ([]byte, error) {
	w := iop.NewBufBinWriter()
	if err := m.Encode(w.BinWriter); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode reads a frame's header and raw payload bytes from r,
// checking the frame against expectedMagic and maxPayload (normally
// the node's configured P2P.MaxPayloadSize, never above
// MaxPayloadSize). The payload is left undecoded in m.raw; call
// DecodePayload once Command is known to dispatch to the right type.
func (m *Message) Decode(r *iop.BinReader, expectedMagic uint32, maxPayload uint32) error {
	m.Magic = r.ReadU32LE()
	if r.Err != nil {
		return r.Err
	}
	if m.Magic != expectedMagic {
		return ErrInvalidMagic
	}
	m.Command = CommandType(r.ReadB())
	m.Flags = MessageFlags(r.ReadB())
	limit := int(maxPayload)
	if limit <= 0 || limit > MaxPayloadSize {
		limit = MaxPayloadSize
	}
	m.raw = r.ReadVarBytes(limit)
	return r.Err
}

// DecodePayload allocates the concrete payload type for m.Command and
// decodes m.raw into it. Commands with no payload body (Verack,
// GetAddr, Mempool) leave m.Payload nil.
func (m *Message) DecodePayload() error {
	if !commandKnown(m.Command) {
		return fmt.Errorf("network: unknown command %s", m.Command)
	}
	p := newPayloadFor(m.Command)
	if p == nil {
		return nil
	}
	if len(m.raw) > 0 {
		r := iop.NewBinReaderFromBuf(m.raw)
		p.DecodeBinary(r)
		if r.Err != nil {
			return r.Err
		}
	}
	m.Payload = p
	return nil
}

func commandKnown(cmd CommandType) bool {
	return cmd <= CMDMerkleBlock
}

func newPayloadFor(cmd CommandType) ioSerializable {
	switch cmd {
	case CMDVersion:
		return &payload.Version{}
	case CMDVerack, CMDGetAddr, CMDMempool:
		return nil
	case CMDAddr:
		return &payload.AddressList{}
	case CMDPing, CMDPong:
		return &payload.Ping{}
	case CMDGetHeaders, CMDGetBlocks:
		return &payload.GetBlocks{}
	case CMDHeaders:
		return &payload.Headers{}
	case CMDGetBlockByIndex:
		return &payload.GetBlockByIndex{}
	case CMDInv, CMDGetData, CMDNotFound:
		return &payload.Inventory{}
	case CMDTX:
		return &transaction.Transaction{}
	case CMDBlock:
		return block.New()
	case CMDExtensible:
		return payload.NewExtensible()
	case CMDFilterLoad:
		return &payload.FilterLoad{}
	case CMDFilterAdd:
		return &payload.FilterAdd{}
	case CMDFilterClear:
		return nil
	case CMDMerkleBlock:
		return &payload.MerkleBlock{}
	default:
		return nil
	}
}
