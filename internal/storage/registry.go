package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// Registry keeps the JSON schemas declared on a client.
type Registry struct {
	mu    sync.RWMutex
	types map[string]json.RawMessage
}

// NewRegistry creates an empty schema registry
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]json.RawMessage)}
}

// Declare records schema under name. Declaring the same document twice is a
// no-op, a different document under a known name fails with ErrSchemaConflict.
func (r *Registry) Declare(name string, schema json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("type name cannot be empty")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, schema); err != nil {
		return fmt.Errorf("invalid schema for type %q: %w", name, err)
	}
	compacted := json.RawMessage(buf.Bytes())

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[name]; ok {
		if bytes.Equal(existing, compacted) {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrSchemaConflict, name)
	}
	r.types[name] = compacted
	return nil
}

// Schema returns the compacted schema declared under name
func (r *Registry) Schema(name string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.types[name]
	return s, ok
}

// Check fails with ErrUnknownType unless typeName is empty or declared.
func (r *Registry) Check(typeName string) error {
	if typeName == "" {
		return nil
	}
	if _, ok := r.Schema(typeName); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	return nil
}
