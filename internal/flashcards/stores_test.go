package flashcards

import (
	"context"
	"testing"

	"flashcards/internal/domain"
	"flashcards/internal/storage"
	"flashcards/internal/storage/memory"
	"flashcards/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores_For(t *testing.T) {
	ctx := context.Background()
	client := memory.New()
	stores, err := NewStores(ctx, client, testutil.NewTestLogger())
	require.NoError(t, err)

	alice, err := stores.For(ctx, "1")
	require.NoError(t, err)
	bob, err := stores.For(ctx, "2")
	require.NoError(t, err)

	again, err := stores.For(ctx, "1")
	require.NoError(t, err)
	assert.Same(t, alice, again)

	_, err = alice.Store(ctx, domain.Flashcard{ID: "1", FrontText: "uno", Group: "spanish"})
	require.NoError(t, err)
	_, err = bob.Store(ctx, domain.Flashcard{ID: "1", FrontText: "eins", Group: "german"})
	require.NoError(t, err)

	groups, err := alice.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spanish"}, groups)

	groups, err = bob.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"german"}, groups)

	_, err = bob.Get(ctx, "spanish", "1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = client.GetObject(ctx, "1/spanish/1")
	assert.NoError(t, err)
}

func TestStores_For_InvalidOwner(t *testing.T) {
	stores, err := NewStores(context.Background(), memory.New(), testutil.NewTestLogger())
	require.NoError(t, err)

	for _, owner := range []string{"", "a/b"} {
		_, err := stores.For(context.Background(), owner)
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
	}
}

func TestStores_On(t *testing.T) {
	ctx := context.Background()
	stores, err := NewStores(ctx, memory.New(), testutil.NewTestLogger())
	require.NoError(t, err)

	early, err := stores.For(ctx, "1")
	require.NoError(t, err)

	var paths []string
	stores.On(storage.EventChange, func(ev storage.Event) {
		paths = append(paths, ev.Path)
	})

	late, err := stores.For(ctx, "2")
	require.NoError(t, err)

	_, err = early.Store(ctx, domain.Flashcard{ID: "1", FrontText: "uno", Group: "spanish"})
	require.NoError(t, err)
	_, err = late.Store(ctx, domain.Flashcard{ID: "2", FrontText: "eins", Group: "german"})
	require.NoError(t, err)

	assert.Equal(t, []string{"spanish/1", "german/2"}, paths)
}

func TestNewStores_SchemaConflict(t *testing.T) {
	ctx := context.Background()
	client := memory.New()
	require.NoError(t, client.DeclareType(ctx, domain.FlashcardType, []byte(`{"type":"string"}`)))

	_, err := NewStores(ctx, client, testutil.NewTestLogger())
	assert.ErrorIs(t, err, storage.ErrSchemaConflict)
}
