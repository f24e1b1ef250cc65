package config

// Hardfork identifies a protocol activation point gated by block height.
// A single hardfork is modeled; the reference network has accumulated
// several (Aspidochelone, Basilisk, Cockatrice, Domovoi, Echidna).
type Hardfork byte

// HFDefault denotes pre-hardfork, genesis-era behaviour.
const HFDefault Hardfork = 0

// HFBasilisk is the one modeled activation point: it is checked by native
// contracts that changed deterministic behaviour at a configured height
// (see pkg/core/native for call sites).
const HFBasilisk Hardfork = 1

// String implements the Stringer interface.
func (h Hardfork) String() string {
	switch h {
	case HFBasilisk:
		return "Basilisk"
	default:
		return "Default"
	}
}

// IsHardforkValid reports whether name identifies a known hardfork.
func IsHardforkValid(name string) bool {
	return name == HFBasilisk.String()
}
