package native

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/n3fullnode/neofull/pkg/core/interop"
	"github.com/n3fullnode/neofull/pkg/core/native/noderoles"
	"github.com/n3fullnode/neofull/pkg/smartcontract/callflag"
	"github.com/n3fullnode/neofull/pkg/util"
	"github.com/n3fullnode/neofull/pkg/vm/stackitem"
)

const oracleID = -9

// OracleRequest is one outstanding oracle request: the URL to fetch,
// an optional JSONPath filter, the callback contract/method to
// deliver the response to, arbitrary caller data round-tripped back
// to the callback, and the GAS reserved to pay for the response.
type OracleRequest struct {
	URL             string
	Filter          string
	CallbackContract util.Uint160
	CallbackMethod  string
	UserData        []byte
	GasForResponse  int64
}

type oracleRequestJSON struct {
	URL              string `json:"url"`
	Filter           string `json:"filter"`
	CallbackContract string `json:"callbackcontract"`
	CallbackMethod   string `json:"callbackmethod"`
	UserData         string `json:"userdata"`
	GasForResponse   int64  `json:"gasforresponse"`
}

func (r *OracleRequest) encode() ([]byte, error) {
	return json.Marshal(oracleRequestJSON{
		URL: r.URL, Filter: r.Filter, CallbackContract: "0x" + r.CallbackContract.StringLE(),
		CallbackMethod: r.CallbackMethod, UserData: string(r.UserData), GasForResponse: r.GasForResponse,
	})
}

func decodeOracleRequest(b []byte) (*OracleRequest, error) {
	var aux oracleRequestJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return nil, err
	}
	h, err := util.Uint160DecodeStringLE(aux.CallbackContract[2:])
	if err != nil {
		return nil, err
	}
	return &OracleRequest{URL: aux.URL, Filter: aux.Filter, CallbackContract: h, CallbackMethod: aux.CallbackMethod,
		UserData: []byte(aux.UserData), GasForResponse: aux.GasForResponse}, nil
}

// minimumOracleResponseGas is the floor GAS a request must reserve,
// matching the reference node's anti-spam minimum.
const minimumOracleResponseGas = 10000000

var (
	oracleRequestPrefix = []byte{9}
	oracleNextIDKey     = []byte{10}
	oraclePriceKey      = []byte{5}
)

const defaultOraclePrice = 50000000

// oracle is the Oracle native contract: requests are recorded on
// chain by a deployed contract. The ledger's state-dependent
// verification accepts an OracleResponse-attributed transaction only
// if it names a recorded request and is signed by a designated Oracle
// node; the ledger does not invoke the request's callback method and
// does not remove the answered request.
type oracle struct {
	md *ContractMD
}

func newOracle() *oracle {
	c := &oracle{md: NewContractMD("OracleContract", oracleID)}
	c.md.AddMethod(MethodDesc{Name: "request", Func: c.request, ParamCount: 5, RequiredFlag: callflag.States, ReturnsValue: false})
	c.md.AddMethod(MethodDesc{Name: "getPrice", Func: c.getPrice, RequiredFlag: callflag.ReadStates, ReturnsValue: true})
	c.md.AddMethod(MethodDesc{Name: "setPrice", Func: c.setPrice, ParamCount: 1, RequiredFlag: callflag.States, ReturnsValue: false})
	return c
}

func (c *oracle) Metadata() *ContractMD { return c.md }
func (c *oracle) OnPersist(ic *interop.Context) error { return nil }
func (c *oracle) PostPersist(ic *interop.Context) error { return nil }

func (c *oracle) nextID(ic *interop.Context) (uint64, error) {
	b, err := ic.DAO.GetStorageItem(c.md.ID, oracleNextIDKey)
	var id uint64 = 1
	if err == nil && len(b) == 8 {
		id = binary.LittleEndian.Uint64(b) + 1
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, id)
	return id, ic.DAO.PutStorageItem(c.md.ID, oracleNextIDKey, out)
}

func requestKey(id uint64) []byte {
	b := make([]byte, 1+8)
	b[0] = oracleRequestPrefix[0]
	binary.BigEndian.PutUint64(b[1:], id)
	return b
}

func (c *oracle) request(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	url, err := stackitem.ToByteArray(args[0])
	if err != nil {
		return nil, err
	}
	filter, err := stackitem.ToByteArray(args[1])
	if err != nil {
		return nil, err
	}
	method, err := stackitem.ToByteArray(args[2])
	if err != nil {
		return nil, err
	}
	userData, err := stackitem.ToByteArray(args[3])
	if err != nil {
		return nil, err
	}
	gasN, err := stackitem.ToBigInteger(args[4])
	if err != nil {
		return nil, err
	}
	gas := gasN.Int64()
	if gas < minimumOracleResponseGas {
		return nil, errors.New("oracle: gasForResponse below minimum")
	}
	if ic.VM == nil {
		return nil, errors.New("oracle: request requires a calling contract context")
	}
	caller := ic.VM.Context().ScriptHash
	id, err := c.nextID(ic)
	if err != nil {
		return nil, err
	}
	req := &OracleRequest{URL: string(url), Filter: string(filter), CallbackContract: caller,
		CallbackMethod: string(method), UserData: userData, GasForResponse: gas}
	b, err := req.encode()
	if err != nil {
		return nil, err
	}
	return nil, ic.DAO.PutStorageItem(c.md.ID, requestKey(id), b)
}

// GetRequest is the Go-level accessor the ledger's state-dependent
// verification uses to check that an OracleResponse names a recorded
// request.
func (c *oracle) GetRequest(ic *interop.Context, id uint64) (*OracleRequest, error) {
	b, err := ic.DAO.GetStorageItem(c.md.ID, requestKey(id))
	if err != nil {
		return nil, err
	}
	return decodeOracleRequest(b)
}

// Finish removes a recorded request. Nothing in the ledger calls it, so
// answered requests stay in storage.
func (c *oracle) Finish(ic *interop.Context, id uint64) error {
	return ic.DAO.DeleteStorageItem(c.md.ID, requestKey(id))
}

func (c *oracle) getPrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	n, err := ic.DAO.GetBigInt(c.md.ID, oraclePriceKey)
	if err != nil {
		return nil, err
	}
	if n.Sign() == 0 {
		return stackitem.NewInteger(defaultOraclePrice), nil
	}
	return stackitem.NewBigInteger(n)
}

func (c *oracle) setPrice(ic *interop.Context, args []stackitem.Item) (stackitem.Item, error) {
	ok, err := ic.CheckCommitteeWitness()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotCommittee
	}
	n, err := stackitem.ToBigInteger(args[0])
	if err != nil {
		return nil, err
	}
	return nil, ic.DAO.PutBigInt(c.md.ID, oraclePriceKey, n)
}

// IsOracleNode reports whether pub is currently designated into the
// Oracle role as of the given block index.
func IsOracleNode(ic *interop.Context, designated *designate, pub []byte, index uint32) bool {
	item, err := designated.getDesignatedByRole(ic, []stackitem.Item{
		stackitem.NewInteger(int64(noderoles.Oracle)),
		stackitem.NewInteger(int64(index)),
	})
	if err != nil {
		return false
	}
	arr, ok := item.(*stackitem.Array)
	if !ok {
		return false
	}
	for _, it := range arr.Value().([]stackitem.Item) {
		b, err := stackitem.ToByteArray(it)
		if err == nil && string(b) == string(pub) {
			return true
		}
	}
	return false
}
