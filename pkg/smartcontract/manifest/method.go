package manifest

import "github.com/n3fullnode/neofull/pkg/smartcontract"

// MethodNameDeploy is the well-known name of a contract's deploy hook;
// ContractManagement's deploy and update do not invoke it.
const MethodNameDeploy = "_deploy"

// MethodNameVerify is the well-known name of a contract's verification
// method; witness verification in the node does not look it up.
const MethodNameVerify = "verify"

// Method is one ABI entry: a name, its parameter/return types, the
// script offset its code starts at, and whether it's safe (read-only,
// callable without a witness check).
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	ReturnType smartcontract.ParamType `json:"returntype"`
	Offset     int         `json:"offset"`
	Safe       bool        `json:"safe"`
}
