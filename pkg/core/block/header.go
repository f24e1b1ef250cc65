// Package block implements the Neo N3 block header and body: the
// hashable header fields, the double-SHA256 block hash cached the
// same way a Transaction caches its own, and the transaction list
// committed to the header's Merkle root.
package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/n3fullnode/neofull/pkg/core/transaction"
	"github.com/n3fullnode/neofull/pkg/crypto/hash"
	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/util"
)

// VersionInitial is the only block version N3 accepts.
const VersionInitial uint32 = 0

// Header carries the fields common to every block: everything needed
// to validate the chain of hashes and consensus signatures without
// touching the transaction bodies themselves.
type Header struct {
	Version       uint32
	PrevHash      util.Uint256
	MerkleRoot    util.Uint256
	Timestamp     uint64 // milliseconds since Unix epoch
	Nonce         uint64
	Index         uint32
	PrimaryIndex  byte
	NextConsensus util.Uint160
	Script        transaction.Witness

	hash util.Uint256
}

type headerJSON struct {
	Hash          util.Uint256        `json:"hash"`
	Version       uint32              `json:"version"`
	PrevHash      util.Uint256        `json:"previousblockhash"`
	MerkleRoot    util.Uint256        `json:"merkleroot"`
	Timestamp     uint64              `json:"time"`
	Nonce         string              `json:"nonce"`
	Index         uint32              `json:"index"`
	PrimaryIndex  byte                `json:"primary"`
	NextConsensus string              `json:"nextconsensus"`
	Witnesses     []transaction.Witness `json:"witnesses"`
}

// Hash returns the block hash, computed once over the hashable fields
// and cached; a Header must not be mutated after this is first called
// (mirrors transaction.Transaction.Hash's contract).
func (h *Header) Hash() util.Uint256 {
	if h.hash.Equals(util.Uint256{}) {
		h.createHash()
	}
	return h.hash
}

func (h *Header) createHash() {
	buf := io.NewBufBinWriter()
	h.encodeHashableFields(buf.BinWriter)
	h.hash = hash.DoubleSha256(buf.Bytes())
}

func (h *Header) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteU32LE(h.Version)
	bw.WriteBytes(h.PrevHash[:])
	bw.WriteBytes(h.MerkleRoot[:])
	bw.WriteU64LE(h.Timestamp)
	bw.WriteU64LE(h.Nonce)
	bw.WriteU32LE(h.Index)
	bw.WriteB(h.PrimaryIndex)
	bw.WriteBytes(h.NextConsensus[:])
}

func (h *Header) decodeHashableFields(br *io.BinReader) {
	h.Version = br.ReadU32LE()
	if br.Err == nil && h.Version != VersionInitial {
		br.Err = fmt.Errorf("block: unsupported header version %d", h.Version)
		return
	}
	br.ReadBytes(h.PrevHash[:])
	br.ReadBytes(h.MerkleRoot[:])
	h.Timestamp = br.ReadU64LE()
	h.Nonce = br.ReadU64LE()
	h.Index = br.ReadU32LE()
	h.PrimaryIndex = br.ReadB()
	br.ReadBytes(h.NextConsensus[:])
	if br.Err == nil {
		h.createHash()
	}
}

// EncodeBinary implements io.Serializable.
func (h *Header) EncodeBinary(bw *io.BinWriter) {
	h.encodeHashableFields(bw)
	bw.WriteVarUint(1)
	h.Script.EncodeBinary(bw)
}

// DecodeBinary implements io.Serializable.
func (h *Header) DecodeBinary(br *io.BinReader) {
	h.decodeHashableFields(br)
	witnessCount := br.ReadVarUint()
	if br.Err == nil && witnessCount != 1 {
		br.Err = errors.New("block: header must carry exactly one witness")
		return
	}
	h.Script.DecodeBinary(br)
}

// MarshalJSON implements json.Marshaler.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{
		Hash:          h.Hash(),
		Version:       h.Version,
		PrevHash:      h.PrevHash,
		MerkleRoot:    h.MerkleRoot,
		Timestamp:     h.Timestamp,
		Nonce:         fmt.Sprintf("%016X", h.Nonce),
		Index:         h.Index,
		PrimaryIndex:  h.PrimaryIndex,
		NextConsensus: util.Uint160ToAddress(h.NextConsensus),
		Witnesses:     []transaction.Witness{h.Script},
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Header) UnmarshalJSON(data []byte) error {
	aux := new(headerJSON)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	var nonce uint64
	var err error
	if len(aux.Nonce) != 0 {
		nonce, err = strconv.ParseUint(aux.Nonce, 16, 64)
		if err != nil {
			return err
		}
	}
	nextConsensus, err := util.AddressToUint160(aux.NextConsensus)
	if err != nil {
		return err
	}
	if len(aux.Witnesses) != 1 {
		return errors.New("block: wrong number of witnesses")
	}
	h.Version = aux.Version
	h.PrevHash = aux.PrevHash
	h.MerkleRoot = aux.MerkleRoot
	h.Timestamp = aux.Timestamp
	h.Nonce = nonce
	h.Index = aux.Index
	h.PrimaryIndex = aux.PrimaryIndex
	h.NextConsensus = nextConsensus
	h.Script = aux.Witnesses[0]
	if !aux.Hash.Equals(h.Hash()) {
		return errors.New("block: json 'hash' doesn't match computed hash")
	}
	return nil
}
