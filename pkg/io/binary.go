// Package io provides the canonical little-endian binary codec used
// throughout the node for wire messages, transactions, blocks and VM
// payloads. It mirrors the read-once/check-at-the-end style used across
// the codebase: every reader and writer carries a sticky error and every
// subsequent call becomes a no-op once that error is set.
package io

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Serializable is the interface implemented by every wire-encodable type.
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// ErrVarIntTooBig is returned for variable-length ints claiming an
// absurd size (attempted resource-exhaustion of the reader).
var ErrVarIntTooBig = errors.New("io: varint value is too big")

// MaxArraySize bounds any var-int-prefixed array/bytes read via this
// package, independent of any caller-provided limit, as a hard backstop.
const MaxArraySize = 0x1000000

// BinReader reads little-endian primitives off an io.Reader, sticking on
// the first error encountered.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReaderFromIO creates a BinReader from the given io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

// NewBinReaderFromBuf creates a BinReader from a byte slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	r := bytes.NewReader(b)
	return NewBinReaderFromIO(r)
}

func (r *BinReader) readLE(v interface{}) {
	if r.Err != nil {
		return
	}
	r.Err = binary.Read(r.r, binary.LittleEndian, v)
}

// ReadU64LE reads a uint64.
func (r *BinReader) ReadU64LE() uint64 {
	var v uint64
	r.readLE(&v)
	return v
}

// ReadU32LE reads a uint32.
func (r *BinReader) ReadU32LE() uint32 {
	var v uint32
	r.readLE(&v)
	return v
}

// ReadU16LE reads a uint16.
func (r *BinReader) ReadU16LE() uint16 {
	var v uint16
	r.readLE(&v)
	return v
}

// ReadU16BE reads a uint16 in big-endian order (network byte order, used
// by peer address ports).
func (r *BinReader) ReadU16BE() uint16 {
	if r.Err != nil {
		return 0
	}
	var v uint16
	r.Err = binary.Read(r.r, binary.BigEndian, &v)
	return v
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	var v byte
	r.readLE(&v)
	return v
}

// ReadBool reads a single byte as a boolean.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadArray reads a var-int length prefix followed by len elements
// decoded with f.
func (r *BinReader) ReadArray(f func(), maxCount ...int) int {
	n := int(r.ReadVarUint())
	max := MaxArraySize
	if len(maxCount) > 0 {
		max = maxCount[0]
	}
	if r.Err != nil {
		return 0
	}
	if n > max {
		r.Err = ErrVarIntTooBig
		return 0
	}
	for i := 0; i < n; i++ {
		f()
		if r.Err != nil {
			return i
		}
	}
	return n
}

// ReadVarUint reads a variable-length integer:
// 0x00..0xFC is the literal value, 0xFD prefixes a u16, 0xFE a u32,
// 0xFF a u64.
func (r *BinReader) ReadVarUint() uint64 {
	if r.Err != nil {
		return 0
	}
	b := r.ReadB()
	switch b {
	case 0xfd:
		return uint64(r.ReadU16LE())
	case 0xfe:
		return uint64(r.ReadU32LE())
	case 0xff:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a var-int length prefix followed by that many raw
// bytes.
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	n := r.ReadVarUint()
	max := uint64(MaxArraySize)
	if len(maxSize) > 0 {
		max = uint64(maxSize[0])
	}
	if r.Err != nil {
		return nil
	}
	if n > max {
		r.Err = ErrVarIntTooBig
		return nil
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	return b
}

// ReadString reads a var-length UTF-8 string.
func (r *BinReader) ReadString(maxSize ...int) string {
	return string(r.ReadVarBytes(maxSize...))
}

// ReadBytes fills b entirely or sets Err.
func (r *BinReader) ReadBytes(b []byte) {
	if r.Err != nil {
		return
	}
	_, r.Err = io.ReadFull(r.r, b)
}

// BinWriter writes little-endian primitives to an io.Writer, sticking on
// the first error encountered.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter writing to w.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// BufBinWriter is a BinWriter fronted by an in-memory, flushable buffer.
type BufBinWriter struct {
	*BinWriter
	buf *bufio.Writer
	bb  *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter over a fresh byte buffer.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	bw := bufio.NewWriter(b)
	return &BufBinWriter{
		BinWriter: NewBinWriterFromIO(bw),
		buf:       bw,
		bb:        b,
	}
}

// Bytes flushes the buffer and returns a copy of its contents, or nil
// once the writer holds a sticky error; it leaves both the buffer and
// the error in place (Reset clears them).
func (bw *BufBinWriter) Bytes() []byte {
	if bw.Err != nil {
		return nil
	}
	_ = bw.buf.Flush()
	b := bw.bb.Bytes()
	res := make([]byte, len(b))
	copy(res, b)
	return res
}

// Reset clears the buffer and any sticky error.
func (bw *BufBinWriter) Reset() {
	bw.Err = nil
	bw.bb.Reset()
	bw.buf.Reset(bw.bb)
}

func (w *BinWriter) writeLE(v interface{}) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.w, binary.LittleEndian, v)
}

// WriteU64LE writes a uint64.
func (w *BinWriter) WriteU64LE(v uint64) { w.writeLE(v) }

// WriteU32LE writes a uint32.
func (w *BinWriter) WriteU32LE(v uint32) { w.writeLE(v) }

// WriteU16LE writes a uint16.
func (w *BinWriter) WriteU16LE(v uint16) { w.writeLE(v) }

// WriteU16BE writes a uint16 in big-endian (network) order.
func (w *BinWriter) WriteU16BE(v uint16) {
	if w.Err != nil {
		return
	}
	w.Err = binary.Write(w.w, binary.BigEndian, v)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(v byte) { w.writeLE(v) }

// WriteBool writes a boolean as a single byte.
func (w *BinWriter) WriteBool(v bool) {
	if v {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteArray writes a var-int count followed by each element's
// EncodeBinary. arr must be a slice of Serializable or a slice of
// pointers to Serializable.
func (w *BinWriter) WriteArray(arr interface{}) {
	switch a := arr.(type) {
	case []Serializable:
		w.WriteVarUint(uint64(len(a)))
		for _, s := range a {
			s.EncodeBinary(w)
		}
	default:
		panic("io: WriteArray: unsupported type")
	}
}

// WriteVarUint writes n using the minimal var-int encoding.
func (w *BinWriter) WriteVarUint(n uint64) {
	if w.Err != nil {
		return
	}
	switch {
	case n < 0xfd:
		w.WriteB(byte(n))
	case n <= 0xffff:
		w.WriteB(0xfd)
		w.WriteU16LE(uint16(n))
	case n <= 0xffffffff:
		w.WriteB(0xfe)
		w.WriteU32LE(uint32(n))
	default:
		w.WriteB(0xff)
		w.WriteU64LE(n)
	}
}

// WriteVarBytes writes a var-int length prefix followed by b.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes a var-length UTF-8 string.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}

// WriteBytes writes b verbatim with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// GetVarSize returns the number of bytes EncodeBinary(v) would produce,
// without materializing the encoding, by running it through a counting
// writer.
func GetVarSize(v Serializable) int {
	cw := &countingWriter{}
	bw := &BinWriter{w: cw}
	v.EncodeBinary(bw)
	return cw.n
}

type countingWriter struct{ n int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// VarUintSize returns the number of bytes the var-int encoding of n
// occupies.
func VarUintSize(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
