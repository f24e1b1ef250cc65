package config

// LedgerConfiguration selects and tunes the storage backend pkg/store
// constructs for the node.
type LedgerConfiguration struct {
	// DataDirectoryPath is the root directory the store writes its files under.
	DataDirectoryPath string `yaml:"DataDirectoryPath"`
	// Engine selects the store.Store backend: "boltdb", "leveldb", or "inmemory" (empty also selects the in-memory store).
	Engine string `yaml:"Engine"`

	// RemoveUntraceableBlocks is accepted in the configuration file but is
	// not read by the ledger: blocks are never garbage-collected, whatever
	// ProtocolConfiguration.MaxTraceableBlocks says.
	RemoveUntraceableBlocks bool `yaml:"RemoveUntraceableBlocks"`
}
