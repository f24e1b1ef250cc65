package manifest

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/n3fullnode/neofull/pkg/crypto/keys"
	"github.com/n3fullnode/neofull/pkg/util"
)

// PermissionType tags what a Permission's Contract field identifies.
type PermissionType byte

const (
	// PermissionWildcard allows calling any contract (Contract.Value is nil).
	PermissionWildcard PermissionType = iota
	// PermissionHash restricts the permission to one contract script hash.
	PermissionHash
	// PermissionGroup restricts the permission to contracts signed by one group key.
	PermissionGroup
)

// PermissionDesc identifies the contract(s) a Permission applies to.
type PermissionDesc struct {
	Type  PermissionType
	Value interface{} // nil, util.Uint160, or *keys.PublicKey
}

// Permission declares that the deployed contract is allowed to call
// into the described contract(s), invoking only the listed methods
// (or any method, if Methods is a wildcard).
type Permission struct {
	Contract PermissionDesc
	Methods  WildStrings
}

// NewPermission builds a Permission of the given type, validating the
// single argument the type requires; it panics on a malformed call
// the manifest author controls, mirroring how the
// constructor treats these as programmer errors, not data errors.
func NewPermission(typ PermissionType, args ...interface{}) *Permission {
	p := &Permission{Contract: PermissionDesc{Type: typ}}
	switch typ {
	case PermissionWildcard:
		if len(args) != 0 {
			panic("manifest: wildcard permission takes no arguments")
		}
	case PermissionHash:
		if len(args) != 1 {
			panic("manifest: hash permission requires exactly one util.Uint160 argument")
		}
		h, ok := args[0].(util.Uint160)
		if !ok {
			panic("manifest: hash permission argument must be util.Uint160")
		}
		p.Contract.Value = h
	case PermissionGroup:
		if len(args) != 1 {
			panic("manifest: group permission requires exactly one *keys.PublicKey argument")
		}
		pub, ok := args[0].(*keys.PublicKey)
		if !ok || pub == nil {
			panic("manifest: group permission argument must be a non-nil *keys.PublicKey")
		}
		p.Contract.Value = pub
	default:
		panic("manifest: unknown permission type")
	}
	return p
}

// IsAllowed reports whether this permission covers a call into the
// contract identified by h/groups, invoking method.
func (p *Permission) IsAllowed(h util.Uint160, groups [][]byte, method string) bool {
	switch p.Contract.Type {
	case PermissionWildcard:
	case PermissionHash:
		if p.Contract.Value.(util.Uint160) != h {
			return false
		}
	case PermissionGroup:
		pub := p.Contract.Value.(*keys.PublicKey).Bytes()
		found := false
		for _, g := range groups {
			if string(g) == string(pub) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return p.Methods.Contains(method)
}

type permissionJSON struct {
	Contract json.RawMessage `json:"contract"`
	Methods  WildStrings     `json:"methods"`
}

// MarshalJSON implements json.Marshaler.
func (p Permission) MarshalJSON() ([]byte, error) {
	contractJSON, err := p.Contract.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(permissionJSON{Contract: contractJSON, Methods: p.Methods})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Permission) UnmarshalJSON(data []byte) error {
	aux := new(permissionJSON)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if err := p.Contract.UnmarshalJSON(aux.Contract); err != nil {
		return err
	}
	p.Methods = aux.Methods
	return nil
}

// MarshalJSON implements json.Marshaler: "*" for a wildcard, a
// "0x"-prefixed hash for PermissionHash, or a hex public key for
// PermissionGroup.
func (d PermissionDesc) MarshalJSON() ([]byte, error) {
	switch d.Type {
	case PermissionWildcard:
		return json.Marshal("*")
	case PermissionHash:
		h := d.Value.(util.Uint160)
		return json.Marshal("0x" + h.StringLE())
	case PermissionGroup:
		pub := d.Value.(*keys.PublicKey)
		return json.Marshal(hex.EncodeToString(pub.Bytes()))
	default:
		return nil, errors.New("manifest: unknown permission descriptor type")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *PermissionDesc) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("manifest: permission descriptor must be a string")
	}
	if s == "*" {
		d.Type = PermissionWildcard
		d.Value = nil
		return nil
	}
	if strings.HasPrefix(s, "0x") {
		h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return err
		}
		d.Type = PermissionHash
		d.Value = h
		return nil
	}
	pubBytes, err := hex.DecodeString(s)
	if err != nil || len(pubBytes) != 33 {
		return fmt.Errorf("manifest: invalid permission descriptor %q", s)
	}
	pub, err := keys.DecodeBytes(pubBytes, keys.Secp256r1)
	if err != nil {
		return err
	}
	d.Type = PermissionGroup
	d.Value = pub
	return nil
}

// WildStrings is either an explicit method allow-list or a wildcard
// (nil Value) matching anything.
type WildStrings struct {
	Value []string
}

// Restrict turns the wildcard into an explicit empty list.
func (w *WildStrings) Restrict() {
	w.Value = []string{}
}

// Add appends a method name to the explicit list, restricting the
// wildcard implicitly if it hasn't been already.
func (w *WildStrings) Add(s string) {
	w.Value = append(w.Value, s)
}

// Contains reports whether s is allowed: a nil Value is an
// unrestricted wildcard, anything matches.
func (w WildStrings) Contains(s string) bool {
	if w.Value == nil {
		return true
	}
	for _, v := range w.Value {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (w WildStrings) MarshalJSON() ([]byte, error) {
	if w.Value == nil {
		return json.Marshal("*")
	}
	return json.Marshal(w.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WildStrings) UnmarshalJSON(data []byte) error {
	var wildcard string
	if err := json.Unmarshal(data, &wildcard); err == nil {
		if wildcard != "*" {
			return fmt.Errorf("manifest: invalid wildcard string %q", wildcard)
		}
		w.Value = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	w.Value = list
	return nil
}
