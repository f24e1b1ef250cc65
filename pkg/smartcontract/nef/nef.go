// Package nef implements the NEF3 container format a compiled
// contract is deployed and stored as: a fixed header, the call-token
// table CALLT indexes into, the raw script, and a checksum over
// everything preceding it.
package nef

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/io"
)

// Magic identifies a NEF3 file; "NEF3" read as a little-endian uint32.
const Magic uint32 = 0x3346454E

// MaxScriptLength bounds a deployed contract's script.
const MaxScriptLength = 512 * 1024

// MaxCompilerLength is the fixed, null-padded width of Header.Compiler.
const MaxCompilerLength = 64

var (
	errInvalidMagic     = errors.New("nef: invalid magic")
	errInvalidReserved  = errors.New("nef: reserved bytes must be zero")
	errInvalidChecksum  = errors.New("nef: checksum mismatch")
	errInvalidScriptLen = errors.New("nef: invalid script length")
)

// Header is the fixed-size prefix of a NEF3 file.
type Header struct {
	Magic    uint32
	Compiler string
}

// EncodeBinary implements io.Serializable.
func (h *Header) EncodeBinary(bw *io.BinWriter) {
	bw.WriteU32LE(h.Magic)
	var compiler [MaxCompilerLength]byte
	copy(compiler[:], h.Compiler)
	bw.WriteBytes(compiler[:])
}

// DecodeBinary implements io.Serializable.
func (h *Header) DecodeBinary(br *io.BinReader) {
	h.Magic = br.ReadU32LE()
	if br.Err == nil && h.Magic != Magic {
		br.Err = errInvalidMagic
		return
	}
	var compiler [MaxCompilerLength]byte
	br.ReadBytes(compiler[:])
	n := 0
	for n < len(compiler) && compiler[n] != 0 {
		n++
	}
	h.Compiler = string(compiler[:n])
}

// File is a full NEF3 container.
type File struct {
	Header
	Tokens   []MethodToken
	Script   []byte
	Checksum uint32
}

type fileJSON struct {
	Magic      uint32        `json:"magic"`
	Compiler   string        `json:"compiler"`
	Tokens     []MethodToken `json:"tokens"`
	ScriptB64  string        `json:"script"`
	Checksum   uint32        `json:"checksum"`
}

// CalculateChecksum returns the first 4 bytes (LE) of the double-
// SHA256 digest over every field preceding Checksum itself.
func (f *File) CalculateChecksum() uint32 {
	buf := io.NewBufBinWriter()
	f.encodeWithoutChecksum(buf.BinWriter)
	h1 := sha256.Sum256(buf.Bytes())
	h2 := sha256.Sum256(h1[:])
	return binary.LittleEndian.Uint32(h2[:4])
}

func (f *File) encodeWithoutChecksum(bw *io.BinWriter) {
	f.Header.EncodeBinary(bw)
	bw.WriteU16LE(0) // reserved
	bw.WriteVarUint(uint64(len(f.Tokens)))
	for i := range f.Tokens {
		f.Tokens[i].EncodeBinary(bw)
	}
	bw.WriteU16LE(0) // reserved
	bw.WriteVarBytes(f.Script)
}

// EncodeBinary implements io.Serializable.
func (f *File) EncodeBinary(bw *io.BinWriter) {
	f.encodeWithoutChecksum(bw)
	bw.WriteU32LE(f.Checksum)
}

// DecodeBinary implements io.Serializable.
func (f *File) DecodeBinary(br *io.BinReader) {
	f.Header.DecodeBinary(br)
	if br.Err != nil {
		return
	}
	if r := br.ReadU16LE(); br.Err == nil && r != 0 {
		br.Err = errInvalidReserved
		return
	}
	nTokens := br.ReadVarUint()
	if nTokens > 128 {
		br.Err = fmt.Errorf("nef: too many method tokens (%d)", nTokens)
		return
	}
	f.Tokens = make([]MethodToken, nTokens)
	for i := range f.Tokens {
		f.Tokens[i].DecodeBinary(br)
		if br.Err != nil {
			return
		}
	}
	if r := br.ReadU16LE(); br.Err == nil && r != 0 {
		br.Err = errInvalidReserved
		return
	}
	f.Script = br.ReadVarBytes(MaxScriptLength)
	if br.Err != nil {
		return
	}
	if len(f.Script) == 0 || len(f.Script) > MaxScriptLength {
		br.Err = errInvalidScriptLen
		return
	}
	f.Checksum = br.ReadU32LE()
	if br.Err != nil {
		return
	}
	if f.Checksum != f.CalculateChecksum() {
		br.Err = errInvalidChecksum
	}
}

// Bytes serializes the full NEF file.
func (f *File) Bytes() ([]byte, error) {
	buf := io.NewBufBinWriter()
	f.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

// FileFromBytes decodes a full NEF file, checksum included.
func FileFromBytes(data []byte) (*File, error) {
	f := &File{}
	br := io.NewBinReaderFromBuf(data)
	f.DecodeBinary(br)
	if br.Err != nil {
		return nil, br.Err
	}
	return f, nil
}

// MarshalJSON implements json.Marshaler.
func (f File) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileJSON{
		Magic:     f.Magic,
		Compiler:  f.Compiler,
		Tokens:    f.Tokens,
		ScriptB64: base64.StdEncoding.EncodeToString(f.Script),
		Checksum:  f.Checksum,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *File) UnmarshalJSON(data []byte) error {
	aux := new(fileJSON)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	script, err := base64.StdEncoding.DecodeString(aux.ScriptB64)
	if err != nil {
		return err
	}
	f.Magic = aux.Magic
	f.Compiler = aux.Compiler
	f.Tokens = aux.Tokens
	f.Script = script
	f.Checksum = aux.Checksum
	return nil
}
