package flashcards

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/storage"
	"flashcards/internal/storage/memory"
	"flashcards/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^\d{8}-\d{6}$`)

func newTestStore(t *testing.T, now time.Time) (*Store, *memory.Client) {
	t.Helper()
	client := memory.New()
	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)
	store.now = testutil.FixedClock(now)
	return store, client
}

func TestNew_DeclaresSchema(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)

	store, err := New(context.Background(), client, testutil.NewTestLogger())

	assert.NoError(t, err)
	assert.NotNil(t, store)
	client.AssertExpectations(t)
}

func TestNew_SchemaConflict(t *testing.T) {
	client := memory.New()
	require.NoError(t, client.DeclareType(context.Background(), "flashcard", json.RawMessage(`{"type":"string"}`)))

	store, err := New(context.Background(), client, testutil.NewTestLogger())

	assert.ErrorIs(t, err, storage.ErrSchemaConflict)
	assert.Nil(t, store)
}

func TestStore_Store_New(t *testing.T) {
	now := time.Date(2024, 12, 12, 9, 5, 3, 0, time.UTC)
	store, client := newTestStore(t, now)

	card, err := store.Store(context.Background(), domain.Flashcard{FrontText: "Hola", Group: "spanish"})

	require.NoError(t, err)
	assert.Equal(t, "20241212-090503", card.ID)
	assert.Regexp(t, idPattern, card.ID)
	assert.Equal(t, "spanish", card.Group)
	assert.Equal(t, domain.FlashcardType, card.Type)
	assert.True(t, card.CreatedAt.Equal(now))
	assert.Nil(t, card.UpdatedAt)
	require.NotNil(t, card.Familiarity)
	assert.Equal(t, 0.0, *card.Familiarity)
	require.NotNil(t, card.ReviewedCount)
	assert.Equal(t, 0, *card.ReviewedCount)
	assert.Nil(t, card.ReviewedAt)

	typeName, ok := client.TypeOf("spanish/20241212-090503")
	assert.True(t, ok)
	assert.Equal(t, "flashcard", typeName)
}

func TestStore_Store_Defaults(t *testing.T) {
	store, _ := newTestStore(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	card, err := store.Store(context.Background(), domain.Flashcard{FrontText: "Hello"})

	require.NoError(t, err)
	assert.Equal(t, "20240102-030405", card.ID)
	assert.Equal(t, "default", card.Group)
}

func TestStore_Store_KeepsExplicitZeroAndValues(t *testing.T) {
	store, _ := newTestStore(t, time.Now())

	familiarity := 2.5
	count := 0
	card, err := store.Store(context.Background(), domain.Flashcard{
		ID:            "custom",
		FrontText:     "Hello",
		Hint:          "greeting",
		Familiarity:   &familiarity,
		ReviewedCount: &count,
	})

	require.NoError(t, err)
	assert.Equal(t, "custom", card.ID)
	assert.Equal(t, "greeting", card.Hint)
	assert.Equal(t, 2.5, *card.Familiarity)
	assert.Equal(t, 0, *card.ReviewedCount)
}

func TestStore_Store_Update(t *testing.T) {
	created := time.Date(2024, 12, 12, 9, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, created)
	ctx := context.Background()

	first, err := store.Store(ctx, domain.Flashcard{FrontText: "Hola", Group: "spanish"})
	require.NoError(t, err)

	later := created.Add(90 * time.Second)
	store.now = testutil.FixedClock(later)

	first.BackText = "Hello"
	second, err := store.Store(ctx, *first)

	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(created))
	require.NotNil(t, second.UpdatedAt)
	assert.True(t, second.UpdatedAt.Equal(later))
	assert.Equal(t, "Hello", second.BackText)
}

func TestStore_Store_Invalid(t *testing.T) {
	tests := []struct {
		name string
		card domain.Flashcard
	}{
		{
			name: "missing front text",
			card: domain.Flashcard{Group: "spanish"},
		},
		{
			name: "slash in group",
			card: domain.Flashcard{FrontText: "Hola", Group: "a/b"},
		},
		{
			name: "slash in id",
			card: domain.Flashcard{FrontText: "Hola", ID: "1/2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(testutil.MockClient)
			client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)

			store, err := New(context.Background(), client, testutil.NewTestLogger())
			require.NoError(t, err)

			card, err := store.Store(context.Background(), tt.card)

			assert.ErrorIs(t, err, ErrInvalidFlashcard)
			assert.Nil(t, card)
			client.AssertNotCalled(t, "StoreObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStore_Store_ClientError(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)

	writeErr := fmt.Errorf("quota exceeded")
	client.Mock.On("StoreObject", mock.Anything, "flashcard", "default/1", mock.AnythingOfType("domain.Flashcard")).
		Return(writeErr)

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	card, err := store.Store(context.Background(), domain.Flashcard{ID: "1", FrontText: "Hola"})

	assert.ErrorIs(t, err, writeErr)
	assert.Nil(t, card)
	client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything)
	client.AssertExpectations(t)
}

func TestStore_Store_ReturnsReadBack(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)
	client.Mock.On("StoreObject", mock.Anything, "flashcard", "default/1", mock.Anything).Return(nil)
	// the client may normalize what it stores, the caller sees the stored copy
	client.Mock.On("GetObject", mock.Anything, "default/1").
		Return(json.RawMessage(`{"@id":"1","@type":"flashcard","group":"default","frontText":"Hola (stored)","createdAt":"2024-12-12T09:00:00Z"}`), nil)

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	card, err := store.Store(context.Background(), domain.Flashcard{ID: "1", FrontText: "Hola"})

	require.NoError(t, err)
	assert.Equal(t, "Hola (stored)", card.FrontText)
	client.AssertExpectations(t)
}

func TestStore_Get(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	stored, err := store.Store(ctx, testutil.NewTestFlashcard("spanish", "Hola", "Hello"))
	require.NoError(t, err)

	card, err := store.Get(ctx, "spanish", stored.ID)

	require.NoError(t, err)
	assert.Equal(t, "Hola", card.FrontText)
	assert.Equal(t, "Hello", card.BackText)
	assert.Equal(t, stored.Hint, card.Hint)
	assert.False(t, card.CreatedAt.IsZero())
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := newTestStore(t, time.Now())

	card, err := store.Get(context.Background(), "spanish", "missing")

	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Nil(t, card)
}

func TestStore_Get_InvalidPath(t *testing.T) {
	store, _ := newTestStore(t, time.Now())

	tests := []struct {
		name  string
		group string
		id    string
	}{
		{name: "empty group", group: "", id: "1"},
		{name: "empty id", group: "spanish", id: ""},
		{name: "nested group", group: "a/b", id: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Get(context.Background(), tt.group, tt.id)
			assert.ErrorIs(t, err, storage.ErrInvalidPath)
		})
	}
}

func TestStore_Get_DecodeError(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)
	client.Mock.On("GetObject", mock.Anything, "default/1").Return(json.RawMessage(`[1,2]`), nil)

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	card, err := store.Get(context.Background(), "default", "1")

	assert.Error(t, err)
	assert.Nil(t, card)
}

func TestStore_Remove(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	stored, err := store.Store(ctx, testutil.NewTestFlashcard("spanish", "Hola", ""))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "spanish", stored.ID))

	_, err = store.Get(ctx, "spanish", stored.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// removing again is fine
	assert.NoError(t, store.Remove(ctx, "spanish", stored.ID))
}

func TestStore_Remove_ClientError(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)
	removeErr := fmt.Errorf("permission denied")
	client.Mock.On("Remove", mock.Anything, "spanish/1").Return(removeErr)

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	err = store.Remove(context.Background(), "spanish", "1")

	assert.ErrorIs(t, err, removeErr)
	client.AssertExpectations(t)
}

func TestStore_ListGroups(t *testing.T) {
	store, client := newTestStore(t, time.Now())
	ctx := context.Background()

	for _, card := range []domain.Flashcard{
		{ID: "1", FrontText: "Hola", Group: "spanish"},
		{ID: "2", FrontText: "Adios", Group: "spanish"},
		{ID: "1", FrontText: "Bonjour", Group: "french"},
		{ID: "1", FrontText: "Hello"},
	} {
		_, err := store.Store(ctx, card)
		require.NoError(t, err)
	}
	// loose objects at the root are not groups
	require.NoError(t, client.StoreObject(ctx, "", "readme", "x"))

	groups, err := store.ListGroups(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"default", "french", "spanish"}, groups)
}

func TestStore_ListGroups_ClientError(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)
	client.Mock.On("GetListing", mock.Anything, "/").Return(nil, fmt.Errorf("network down"))

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	groups, err := store.ListGroups(context.Background())

	assert.Error(t, err)
	assert.Nil(t, groups)
	client.AssertExpectations(t)
}

func TestStore_GetAllByGroup(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	for _, card := range []domain.Flashcard{
		{ID: "1", FrontText: "Hola", Group: "spanish"},
		{ID: "2", FrontText: "Adios", Group: "spanish"},
		{ID: "1", FrontText: "Bonjour", Group: "french"},
	} {
		_, err := store.Store(ctx, card)
		require.NoError(t, err)
	}

	cards, err := store.GetAllByGroup(ctx, "spanish")

	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, "Hola", cards["1"].FrontText)
	assert.Equal(t, "Adios", cards["2"].FrontText)

	empty, err := store.GetAllByGroup(ctx, "german")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.GetAllByGroup(ctx, "a/b")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestStore_GetAllByGroup_DefaultGroup(t *testing.T) {
	client := new(testutil.MockClient)
	client.Mock.On("DeclareType", mock.Anything, "flashcard", Schema).Return(nil)
	client.Mock.On("GetAll", mock.Anything, "default/").Return(map[string]json.RawMessage{
		"1": json.RawMessage(`{"@id":"1","frontText":"Hello","group":"default"}`),
	}, nil)

	store, err := New(context.Background(), client, testutil.NewTestLogger())
	require.NoError(t, err)

	cards, err := store.GetAllByGroup(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.Equal(t, "Hello", cards["1"].FrontText)
	client.AssertExpectations(t)
}

func TestStore_On(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	var events []storage.Event
	store.On(storage.EventChange, func(ev storage.Event) {
		events = append(events, ev)
	})

	_, err := store.Store(ctx, domain.Flashcard{ID: "1", FrontText: "Hola", Group: "spanish"})
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "spanish", "1"))

	require.Len(t, events, 2)
	assert.Equal(t, "spanish/1", events[0].Path)
	assert.NotNil(t, events[0].NewValue)
	assert.Nil(t, events[1].NewValue)
}

func TestStore_Scenario(t *testing.T) {
	store, _ := newTestStore(t, time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC))
	ctx := context.Background()

	card, err := store.Store(ctx, domain.Flashcard{FrontText: "Hola", Group: "spanish"})
	require.NoError(t, err)
	assert.Equal(t, "20240615-123045", card.ID)
	assert.Equal(t, "spanish", card.Group)
	assert.False(t, card.CreatedAt.IsZero())

	cards, err := store.GetAllByGroup(ctx, "spanish")
	require.NoError(t, err)
	assert.Contains(t, cards, card.ID)

	require.NoError(t, store.Remove(ctx, "spanish", card.ID))

	_, err = store.Get(ctx, "spanish", card.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
