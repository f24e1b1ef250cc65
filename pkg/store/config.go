package store

import "fmt"

// Backend names recognized by NewStore, the values of the ledger
// config's Engine field.
const (
	InMemoryDB = "inmemory"
	BoltDB     = "boltdb"
	LevelDB    = "leveldb"
)

// DBConfiguration selects and configures a Store backend.
type DBConfiguration struct {
	Type           string         `yaml:"type"`
	BoltDBOptions  BoltDBOptions  `yaml:"boltdb_options"`
	LevelDBOptions LevelDBOptions `yaml:"leveldb_options"`
}

// NewStore constructs the backend named by cfg.Type.
func NewStore(cfg DBConfiguration) (Store, error) {
	switch cfg.Type {
	case "", InMemoryDB:
		return NewMemoryStore(), nil
	case BoltDB:
		return NewBoltDBStore(cfg.BoltDBOptions)
	case LevelDB:
		return NewLevelDBStore(cfg.LevelDBOptions)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Type)
	}
}
