package store

import (
	"fmt"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// Backend is a store for both the ledger and the registry.
type Backend interface {
	ledger.Store
	registry.Store
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*FileStore)(nil)
	_ Backend = (*Memory)(nil)
)

// Driver names accepted by OpenBackend.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
	DriverMemory = "memory"
)

// OpenBackend opens the named driver. For sqlite, location is the database
// file; for json it is the data directory; memory ignores it.
func OpenBackend(driver, location string) (Backend, error) {
	switch driver {
	case DriverSQLite, "":
		return Open(location)
	case DriverJSON:
		return OpenFiles(location)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
