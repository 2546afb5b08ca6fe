package storage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Declare(t *testing.T) {
	r := NewRegistry()

	assert.NoError(t, r.Declare("flashcard", json.RawMessage(`{"type": "object"}`)))

	// same document with different whitespace
	assert.NoError(t, r.Declare("flashcard", json.RawMessage("{\n  \"type\":\"object\"\n}")))

	err := r.Declare("flashcard", json.RawMessage(`{"type":"array"}`))
	assert.ErrorIs(t, err, ErrSchemaConflict)

	schema, ok := r.Schema("flashcard")
	assert.True(t, ok)
	assert.Equal(t, `{"type":"object"}`, string(schema))
}

func TestRegistry_Declare_Invalid(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Declare("", json.RawMessage(`{}`)))
	assert.Error(t, r.Declare("broken", json.RawMessage(`{`)))
}

func TestRegistry_Check(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Declare("flashcard", json.RawMessage(`{}`)))

	assert.NoError(t, r.Check(""))
	assert.NoError(t, r.Check("flashcard"))
	assert.ErrorIs(t, r.Check("user"), ErrUnknownType)
}

func TestEmitter_Emit(t *testing.T) {
	var e Emitter
	var got []string

	e.On(EventChange, func(ev Event) { got = append(got, "first:"+ev.Path) })
	e.On(EventChange, func(ev Event) { got = append(got, "second:"+ev.Path) })
	e.On("other", func(ev Event) { got = append(got, "other") })

	e.Emit(EventChange, Event{Path: "a/1"})

	assert.Equal(t, []string{"first:a/1", "second:a/1"}, got)
}
