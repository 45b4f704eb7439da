package repository

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Open builds the Store selected by backend. The caller owns Close.
func Open(ctx context.Context, backend, dsn string, opts ...Option) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewInMemoryStore(opts...), nil
	case BackendPostgres:
		return OpenSQLStore(ctx, DialectPostgres, dsn, opts...)
	case BackendSQLite:
		return OpenSQLStore(ctx, DialectSQLite, dsn, opts...)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}
