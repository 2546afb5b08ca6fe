// Package storage defines the path-addressed object store the flashcard
// module persists through, together with the helpers shared by its backends.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound       = errors.New("object not found")
	ErrInvalidPath    = errors.New("invalid path")
	ErrSchemaConflict = errors.New("schema already declared with a different definition")
	ErrUnknownType    = errors.New("unknown object type")
)

// EventChange is emitted after an object is stored or removed.
const EventChange = "change"

// OriginWindow marks changes made through this process.
const OriginWindow = "window"

// Event describes a change to a single object.
type Event struct {
	Path     string
	Origin   string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// Handler receives events registered through Client.On.
type Handler func(Event)

// Client is a path-addressed JSON object store with typed schemas,
// directory listings and change notifications.
//
// Object paths must not end in "/". Folder paths are "", "/" or end in "/".
type Client interface {
	// DeclareType registers a JSON schema under name.
	DeclareType(ctx context.Context, name string, schema json.RawMessage) error
	// StoreObject serializes obj as JSON and writes it at path, tagged with typeName.
	StoreObject(ctx context.Context, typeName, path string, obj any) error
	// GetObject returns the raw JSON stored at path or ErrNotFound.
	GetObject(ctx context.Context, path string) (json.RawMessage, error)
	// Remove deletes the object at path. Removing an absent object is not an error.
	Remove(ctx context.Context, path string) error
	// GetListing returns the names of the immediate children of a folder.
	// Sub-folders carry a trailing "/".
	GetListing(ctx context.Context, path string) ([]string, error)
	// GetAll returns every object directly inside a folder keyed by name.
	GetAll(ctx context.Context, path string) (map[string]json.RawMessage, error)
	// On subscribes handler to event.
	On(event string, handler Handler)
}
