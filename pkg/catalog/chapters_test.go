package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapters_CRUD(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()
	course := uuid.NewString()

	created, err := c.Chapters.Create(ctx, CreateChapter{CourseID: course, Title: "  Intro  ", Description: "basics", Position: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Intro", created.Title)
	assert.Equal(t, course, created.CourseID)

	got, err := c.Chapters.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, 1, got.Position)

	updated, err := c.Chapters.Update(ctx, created.ID, UpdateChapter{Title: strp("Introduction")})
	require.NoError(t, err)
	assert.Equal(t, "Introduction", updated.Title)
	assert.Equal(t, "basics", updated.Description, "nil fields are untouched")
	assert.Equal(t, 1, updated.Position)

	require.NoError(t, c.Chapters.Delete(ctx, created.ID))
	_, err = c.Chapters.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Chapters.Delete(ctx, created.ID), ErrNotFound)
}

func TestChapters_PositionUniquePerCourse(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()
	course := uuid.NewString()

	_, err := c.Chapters.Create(ctx, CreateChapter{CourseID: course, Title: "One", Position: 1})
	require.NoError(t, err)

	_, err = c.Chapters.Create(ctx, CreateChapter{CourseID: course, Title: "Dup", Position: 1})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = c.Chapters.Create(ctx, CreateChapter{CourseID: uuid.NewString(), Title: "Other course", Position: 1})
	assert.NoError(t, err)
}

func TestChapters_ListFiltersAndPages(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()
	course := uuid.NewString()

	for _, pos := range []int{3, 1, 2} {
		_, err := c.Chapters.Create(ctx, CreateChapter{CourseID: course, Title: "Ch", Position: pos})
		require.NoError(t, err)
	}
	_, err := c.Chapters.Create(ctx, CreateChapter{CourseID: uuid.NewString(), Title: "Elsewhere", Position: 1})
	require.NoError(t, err)

	all, err := c.Chapters.List(ctx, ListParams{ParentID: course})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].Position, all[1].Position, all[2].Position})

	page, err := c.Chapters.List(ctx, ListParams{ParentID: course, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 2, page[0].Position)

	empty, err := c.Chapters.List(ctx, ListParams{ParentID: uuid.NewString()})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestChapters_Validation(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	tests := map[string]CreateChapter{
		"missing course":    {Title: "x"},
		"blank title":       {CourseID: "c", Title: "   "},
		"negative position": {CourseID: "c", Title: "x", Position: -1},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Chapters.Create(ctx, in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := c.Chapters.Update(ctx, uuid.NewString(), UpdateChapter{Title: strp("")})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Chapters.Update(ctx, uuid.NewString(), UpdateChapter{Title: strp("ok")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLevels_UniqueNameAndRank(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	beginner, err := c.Levels.Create(ctx, CreateLevel{Name: "Beginner", Rank: 1})
	require.NoError(t, err)
	_, err = c.Levels.Create(ctx, CreateLevel{Name: "Advanced", Rank: 3})
	require.NoError(t, err)

	_, err = c.Levels.Create(ctx, CreateLevel{Name: "Beginner", Rank: 2})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = c.Levels.Create(ctx, CreateLevel{Name: "Novice", Rank: 1})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = c.Levels.Create(ctx, CreateLevel{Name: "Zero", Rank: 0})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Levels.Update(ctx, beginner.ID, UpdateLevel{Rank: intp(3)})
	assert.ErrorIs(t, err, ErrConflict)

	levels, err := c.Levels.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "Beginner", levels[0].Name)
	assert.Equal(t, "Advanced", levels[1].Name)
}
