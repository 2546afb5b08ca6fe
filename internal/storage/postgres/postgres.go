// Package postgres implements storage.Client on top of a single objects table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"flashcards/internal/storage"
)

// Client implements storage.Client
type Client struct {
	db       *sql.DB
	registry *storage.Registry
	events   storage.Emitter
}

// New creates a new postgres-backed client
func New(db *sql.DB) *Client {
	return &Client{
		db:       db,
		registry: storage.NewRegistry(),
	}
}

// DeclareType registers a schema. Declarations live in process memory,
// stored rows only carry the type name.
func (c *Client) DeclareType(_ context.Context, name string, schema json.RawMessage) error {
	return c.registry.Declare(name, schema)
}

// StoreObject upserts an object
func (c *Client) StoreObject(ctx context.Context, typeName, path string, obj any) error {
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

	query := `
		INSERT INTO objects (path, type_name, body, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (path)
		DO UPDATE SET type_name = EXCLUDED.type_name, body = EXCLUDED.body, updated_at = NOW()
	`
	if _, err := c.db.ExecContext(ctx, query, p, typeName, string(body)); err != nil {
		return fmt.Errorf("failed to store object %q: %w", p, err)
	}

	c.events.Emit(storage.EventChange, storage.Event{
		Path:     p,
		Origin:   storage.OriginWindow,
		NewValue: body,
	})
	return nil
}

// GetObject returns the object body at path
func (c *Client) GetObject(ctx context.Context, path string) (json.RawMessage, error) {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return nil, err
	}

	var body []byte
	query := `SELECT body FROM objects WHERE path = $1`
	err = c.db.QueryRowContext(ctx, query, p).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", p, err)
	}

	return json.RawMessage(body), nil
}

// Remove deletes the object at path if it exists
func (c *Client) Remove(ctx context.Context, path string) error {
	p, err := storage.ObjectPath(path)
	if err != nil {
		return err
	}

	var old []byte
	query := `DELETE FROM objects WHERE path = $1 RETURNING body`
	err = c.db.QueryRowContext(ctx, query, p).Scan(&old)

	if errors.Is(err, sql.ErrNoRows) {
		// Nothing to delete
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove object %q: %w", p, err)
	}

	c.events.Emit(storage.EventChange, storage.Event{
		Path:     p,
		Origin:   storage.OriginWindow,
		OldValue: json.RawMessage(old),
	})
	return nil
}

// GetListing returns immediate children of a folder
func (c *Client) GetListing(ctx context.Context, path string) ([]string, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT path FROM objects
		WHERE left(path, length($1::text)) = $1::text
	`
	rows, err := c.db.QueryContext(ctx, query, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", folder, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return storage.Listing(folder, paths), nil
}

// GetAll returns objects stored directly inside a folder
func (c *Client) GetAll(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	folder, err := storage.FolderPath(path)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT path, body FROM objects
		WHERE left(path, length($1::text)) = $1::text
			AND position('/' in substr(path, length($1::text) + 1)) = 0
	`
	rows, err := c.db.QueryContext(ctx, query, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to get all in %q: %w", folder, err)
	}
	defer rows.Close()

	all := make(map[string]json.RawMessage)
	for rows.Next() {
		var p string
		var body []byte
		if err := rows.Scan(&p, &body); err != nil {
			return nil, err
		}
		if name, ok := storage.ChildName(folder, p); ok {
			all[name] = json.RawMessage(body)
		}
	}

	return all, rows.Err()
}

// On subscribes to change events
func (c *Client) On(event string, handler storage.Handler) {
	c.events.On(event, handler)
}
