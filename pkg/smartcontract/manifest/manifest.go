package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/n3fullnode/neofull/pkg/util"
)

// MaxManifestSize is the size limit for a manifest's serialized JSON
// form; ContractManagement's deploy and update do not check it.
const MaxManifestSize = 0xFFFF

// NEP17Standard/NEP11Standard are standard names a manifest may list in
// SupportedStandards; nothing checks a contract's ABI against them.
const (
	NEP17Standard = "NEP-17"
	NEP11Standard = "NEP-11"
)

// Manifest is the full contract manifest: identity (groups), the ABI
// surface, call permissions, trusted callers, and declared standards.
type Manifest struct {
	Name               string     `json:"name"`
	Groups             Groups     `json:"groups"`
	SupportedStandards []string   `json:"supportedstandards"`
	ABI                ABI        `json:"abi"`
	Permissions        []Permission `json:"permissions"`
	Trusts             WildPermissionDescs `json:"trusts"`
	Extra              json.RawMessage `json:"extra,omitempty"`
}

// WildPermissionDescs is either an explicit list of PermissionDesc or
// a wildcard (nil Value) trusting every caller.
type WildPermissionDescs struct {
	Value []PermissionDesc
}

// MarshalJSON implements json.Marshaler.
func (w WildPermissionDescs) MarshalJSON() ([]byte, error) {
	if w.Value == nil {
		return json.Marshal("*")
	}
	return json.Marshal(w.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WildPermissionDescs) UnmarshalJSON(data []byte) error {
	var wildcard string
	if err := json.Unmarshal(data, &wildcard); err == nil {
		if wildcard != "*" {
			return fmt.Errorf("manifest: invalid wildcard trust value %q", wildcard)
		}
		w.Value = nil
		return nil
	}
	var list []PermissionDesc
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	w.Value = list
	return nil
}

// DefaultManifest returns a blank manifest for the given contract
// name with a wildcard permission set (default for hand-authored
// contracts that haven't restricted themselves).
func DefaultManifest(name string) *Manifest {
	return &Manifest{
		Name:        name,
		Permissions: []Permission{*NewPermission(PermissionWildcard)},
	}
}

// IsValid checks the manifest's internal consistency: the name is not
// empty, group signatures verify against h, and no two methods share a
// name and parameter count. Event names are not checked.
func (m *Manifest) IsValid(h util.Uint160) error {
	if len(m.Name) == 0 {
		return errors.New("manifest: contract name must not be empty")
	}
	if err := m.Groups.AreValid(h); err != nil {
		return err
	}
	seen := make(map[string]bool, len(m.ABI.Methods))
	for _, meth := range m.ABI.Methods {
		key := fmt.Sprintf("%s/%d", meth.Name, len(meth.Parameters))
		if seen[key] {
			return fmt.Errorf("manifest: duplicate method %s", key)
		}
		seen[key] = true
	}
	return nil
}

// CanCall reports whether this contract (per its Permissions list) is
// allowed to call method on the contract identified by target/groups.
func (m *Manifest) CanCall(target util.Uint160, targetGroups [][]byte, method string) bool {
	for i := range m.Permissions {
		if m.Permissions[i].IsAllowed(target, targetGroups, method) {
			return true
		}
	}
	return false
}

// IsStandardSupported reports whether the manifest declares standard.
func (m *Manifest) IsStandardSupported(standard string) bool {
	for _, s := range m.SupportedStandards {
		if s == standard {
			return true
		}
	}
	return false
}
