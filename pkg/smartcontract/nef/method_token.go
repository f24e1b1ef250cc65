package nef

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/n3fullnode/neofull/pkg/io"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
)

// maxMethodLength bounds MethodToken.Method.
const maxMethodLength = 32

var (
	errInvalidMethodName = errors.New("nef: method name must not start with '_'")
	errInvalidCallFlag   = errors.New("nef: call flag is not a subset of callflag.All")
)

// MethodToken is one entry of a NEF file's call-token table: a
// statically bound external method the CALLT opcode indirects
// through by table index, resolved once at deploy time instead of
// re-resolving a script hash + method name on every call.
type MethodToken struct {
	Hash       util.Uint160
	Method     string
	ParamCount uint16
	HasReturn  bool
	CallFlag   callflag.CallFlag
}

// EncodeBinary implements io.Serializable.
func (t *MethodToken) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(t.Hash[:])
	bw.WriteString(t.Method)
	bw.WriteU16LE(t.ParamCount)
	bw.WriteBool(t.HasReturn)
	bw.WriteB(byte(t.CallFlag))
}

// DecodeBinary implements io.Serializable.
func (t *MethodToken) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(t.Hash[:])
	t.Method = br.ReadString(maxMethodLength)
	if br.Err == nil && strings.HasPrefix(t.Method, "_") {
		br.Err = errInvalidMethodName
		return
	}
	t.ParamCount = br.ReadU16LE()
	t.HasReturn = br.ReadBool()
	t.CallFlag = callflag.CallFlag(br.ReadB())
	if br.Err == nil && t.CallFlag&^callflag.All != 0 {
		br.Err = errInvalidCallFlag
	}
}

type methodTokenJSON struct {
	Hash       string            `json:"hash"`
	Method     string            `json:"method"`
	ParamCount uint16            `json:"paramcount"`
	HasReturn  bool              `json:"hasreturnvalue"`
	CallFlag   callflag.CallFlag `json:"callflags"`
}

// MarshalJSON implements json.Marshaler.
func (t MethodToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(methodTokenJSON{
		Hash:       "0x" + t.Hash.StringLE(),
		Method:     t.Method,
		ParamCount: t.ParamCount,
		HasReturn:  t.HasReturn,
		CallFlag:   t.CallFlag,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *MethodToken) UnmarshalJSON(data []byte) error {
	aux := new(methodTokenJSON)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(aux.Hash, "0x"))
	if err != nil {
		return err
	}
	t.Hash = h
	t.Method = aux.Method
	t.ParamCount = aux.ParamCount
	t.HasReturn = aux.HasReturn
	t.CallFlag = aux.CallFlag
	return nil
}
