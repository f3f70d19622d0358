package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
)

func TestNotes_OwnerFilterAndOrder(t *testing.T) {
	c, conn := newTestCatalog(t)
	tick(c)
	ctx := context.Background()
	alice := seedUser(t, conn, auth.RoleLearner)
	bob := seedUser(t, conn, auth.RoleLearner)

	chapter, err := c.Chapters.Create(ctx, CreateChapter{CourseID: uuid.NewString(), Title: "Ch", Position: 1})
	require.NoError(t, err)

	first, err := c.Notes.Create(ctx, CreateNote{UserID: alice, ChapterID: chapter.ID, Content: "first"})
	require.NoError(t, err)
	second, err := c.Notes.Create(ctx, CreateNote{UserID: alice, ChapterID: chapter.ID, Content: "second"})
	require.NoError(t, err)
	_, err = c.Notes.Create(ctx, CreateNote{UserID: bob, ChapterID: chapter.ID, Content: "bob's"})
	require.NoError(t, err)

	mine, err := c.Notes.List(ctx, ListParams{OwnerID: alice})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")
	assert.Equal(t, first.ID, mine[1].ID)

	all, err := c.Notes.List(ctx, ListParams{ParentID: chapter.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotes_UnknownChapterIsInvalid(t *testing.T) {
	c, conn := newTestCatalog(t)
	user := seedUser(t, conn, auth.RoleLearner)

	_, err := c.Notes.Create(context.Background(), CreateNote{UserID: user, ChapterID: uuid.NewString(), Content: "x"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNotes_CascadeWithChapter(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)

	chapter, err := c.Chapters.Create(ctx, CreateChapter{CourseID: uuid.NewString(), Title: "Ch", Position: 1})
	require.NoError(t, err)
	note, err := c.Notes.Create(ctx, CreateNote{UserID: user, ChapterID: chapter.ID, Content: "x"})
	require.NoError(t, err)

	require.NoError(t, c.Chapters.Delete(ctx, chapter.ID))
	_, err = c.Notes.Get(ctx, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotes_Update(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)
	chapter, err := c.Chapters.Create(ctx, CreateChapter{CourseID: uuid.NewString(), Title: "Ch", Position: 1})
	require.NoError(t, err)
	note, err := c.Notes.Create(ctx, CreateNote{UserID: user, ChapterID: chapter.ID, Content: "draft"})
	require.NoError(t, err)

	updated, err := c.Notes.Update(ctx, note.ID, UpdateNote{Content: strp("final")})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)

	_, err = c.Notes.Update(ctx, note.ID, UpdateNote{})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = c.Notes.Update(ctx, note.ID, UpdateNote{Content: strp(strings.Repeat("x", 10001))})
	assert.ErrorIs(t, err, ErrInvalid)
}
