package manifest

import "github.com/n3fullnode/neofull/pkg/smartcontract"

// Parameter describes one method parameter or event field in a
// contract's ABI.
type Parameter struct {
	Name string                 `json:"name"`
	Type smartcontract.ParamType `json:"type"`
}

// NewParameter constructs a Parameter.
func NewParameter(name string, typ smartcontract.ParamType) Parameter {
	return Parameter{Name: name, Type: typ}
}
