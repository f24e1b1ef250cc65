// Package trigger defines the contexts under which a contract's entry
// point can run.
package trigger

// Type identifies why a script is being executed, selecting which
// entry point of a deployed contract applies.
type Type byte

// The trigger types recognized by the VM and native contracts.
const (
	// OnPersist runs once per block, before any transaction, to let
	// native contracts apply block-level side effects (e.g. GAS
	// distribution bookkeeping).
	OnPersist Type = 0x01
	// Verification runs a signer's verification script to decide
	// whether a witness is valid.
	Verification Type = 0x20
	// Application runs a transaction's entry script or an RPC
	// invocation.
	Application Type = 0x40
	// PostPersist runs once per block, after every transaction, for
	// end-of-block bookkeeping (committee rewards, etc.).
	PostPersist Type = 0x10
	// System is an internal synthetic trigger used for native
	// contract self-calls that are neither on-chain transactions nor
	// verification.
	System Type = 0x80
	// All ORs every trigger.
	All = OnPersist | Verification | Application | PostPersist | System
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case OnPersist:
		return "OnPersist"
	case Verification:
		return "Verification"
	case Application:
		return "Application"
	case PostPersist:
		return "PostPersist"
	case System:
		return "System"
	default:
		return "Unknown"
	}
}
