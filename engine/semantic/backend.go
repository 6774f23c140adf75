package semantic

import "fmt"

// Backend kinds accepted by NewBackend.
const (
	KindQdrant   = "qdrant"
	KindPGVector = "pgvector"
	KindMemory   = "memory"
)

// NewBackend connects the backend of the given kind. addr is the Qdrant gRPC
// address or the PostgreSQL DSN; the memory backend ignores it.
func NewBackend(kind, addr, collection string) (Backend, error) {
	switch kind {
	case KindQdrant:
		return New(addr, collection)
	case KindPGVector:
		return NewPGVector(addr, collection)
	case KindMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("semantic: unknown backend %q", kind)
}
