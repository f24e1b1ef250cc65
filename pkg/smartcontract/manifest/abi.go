package manifest

import "fmt"

// ABI is a contract's full interface declaration: its callable
// methods and the notifications it may emit.
type ABI struct {
	Methods []Method `json:"methods"`
	Events  []Event  `json:"events"`
}

// GetMethod looks up a method by name and parameter count, since N3
// allows overloads distinguished only by arity.
func (a *ABI) GetMethod(name string, paramCount int) (*Method, error) {
	for i := range a.Methods {
		m := &a.Methods[i]
		if m.Name == name && (paramCount < 0 || len(m.Parameters) == paramCount) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("manifest: method %q/%d not found", name, paramCount)
}
