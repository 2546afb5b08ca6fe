// Package memory is an in-process storage.Client.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"flashcards/internal/storage"
)

type object struct {
	typeName string
	body     json.RawMessage
}

// Client keeps objects in a map
type Client struct {
	registry *storage.Registry
	events   storage.Emitter

	mu      sync.RWMutex
	objects map[string]object
}

// New creates an empty in-memory client
func New() *Client {
	return &Client{
		registry: storage.NewRegistry(),
		objects:  make(map[string]object),
	}
}

func (c *Client) DeclareType(_ context.Context, name string, schema json.RawMessage) error {
	return c.registry.Declare(name, schema)
}

func (c *Client) StoreObject(_ context.Context, typeName, path string, obj any) error {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return err
	}
	if err := c.registry.Check(typeName); err != nil {
		return err
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode object %q: %w", p, err)
	}

	c.mu.Lock()
	old, existed := c.objects[p]
	c.objects[p] = object{typeName: typeName, body: body}
	c.mu.Unlock()

	ev := storage.Event{Path: p, Origin: storage.OriginWindow, NewValue: clone(body)}
	if existed {
		ev.OldValue = clone(old.body)
	}
	c.events.Emit(storage.EventChange, ev)
	return nil
}

func (c *Client) GetObject(_ context.Context, path string) (json.RawMessage, error) {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	obj, ok := c.objects[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	return clone(obj.body), nil
}

func (c *Client) Remove(_ context.Context, path string) error {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old, existed := c.objects[p]
	delete(c.objects, p)
	c.mu.Unlock()

	if existed {
		c.events.Emit(storage.EventChange, storage.Event{Path: p, Origin: storage.OriginWindow, OldValue: clone(old.body)})
	}
	return nil
}

func (c *Client) GetListing(_ context.Context, path string) ([]string, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	paths := make([]string, 0, len(c.objects))
	for p := range c.objects {
		paths = append(paths, p)
	}
	c.mu.RUnlock()

	return storage.Listing(folder, paths), nil
}

func (c *Client) GetAll(_ context.Context, path string) (map[string]json.RawMessage, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make(map[string]json.RawMessage)
	for p, obj := range c.objects {
		if name, ok := storage.ChildName(folder, p); ok {
			all[name] = clone(obj.body)
		}
	}
	return all, nil
}

func (c *Client) On(event string, handler storage.Handler) {
	c.events.On(event, handler)
}

// TypeOf returns the type an object was stored with
func (c *Client) TypeOf(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[path]
	return obj.typeName, ok
}

// clone copies body so callers cannot reach the stored bytes
func clone(body json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), body...)
}
