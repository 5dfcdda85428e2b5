package health

import "context"

// Pinger checks availability of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SchemaReader reports the applied registry schema version.
type SchemaReader interface {
	SchemaVersion(ctx context.Context) (int, error)
}
