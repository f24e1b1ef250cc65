package manifest

// Event is one ABI notification entry: the name a contract's
// System.Runtime.Notify call must use, and the field types it carries.
type Event struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}
