package storage

import (
	"context"
	"encoding/json"
	"strings"
)

type scoped struct {
	client Client
	base   string
}

// Scope returns a client rooted at folder base of c. Paths, listings and
// events seen through it are relative to base.
func Scope(c Client, base string) Client {
	base = strings.Trim(base, "/")
	if base == "" {
		return c
	}
	return &scoped{client: c, base: base + "/"}
}

func (s *scoped) DeclareType(ctx context.Context, name string, schema json.RawMessage) error {
	return s.client.DeclareType(ctx, name, schema)
}

func (s *scoped) StoreObject(ctx context.Context, typeName, path string, obj any) error {
	p, err := ObjectPath(path)
	if err != nil {
		return err
	}
	return s.client.StoreObject(ctx, typeName, s.base+p, obj)
}

func (s *scoped) GetObject(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := ObjectPath(path)
	if err != nil {
		return nil, err
	}
	return s.client.GetObject(ctx, s.base+p)
}

func (s *scoped) Remove(ctx context.Context, path string) error {
	p, err := ObjectPath(path)
	if err != nil {
		return err
	}
	return s.client.Remove(ctx, s.base+p)
}

func (s *scoped) GetListing(ctx context.Context, path string) ([]string, error) {
	p, err := FolderPath(path)
	if err != nil {
		return nil, err
	}
	return s.client.GetListing(ctx, s.base+p)
}

func (s *scoped) GetAll(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	p, err := FolderPath(path)
	if err != nil {
		return nil, err
	}
	return s.client.GetAll(ctx, s.base+p)
}

func (s *scoped) On(event string, handler Handler) {
	s.client.On(event, func(ev Event) {
		if !strings.HasPrefix(ev.Path, s.base) {
			return
		}
		ev.Path = strings.TrimPrefix(ev.Path, s.base)
		handler(ev)
	})
}
