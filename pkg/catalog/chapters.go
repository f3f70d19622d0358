package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Chapter is one ordered section of a course.
type Chapter struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateChapter is the input for Chapters.Create.
type CreateChapter struct {
	CourseID    string `json:"courseId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// Validate rejects empty or out-of-range fields.
func (in CreateChapter) Validate() error {
	if strings.TrimSpace(in.CourseID) == "" {
		return invalid("courseId is required")
	}
	if err := validTitle(in.Title); err != nil {
		return err
	}
	if in.Position < 0 {
		return invalid("position must not be negative")
	}
	return nil
}

// UpdateChapter changes the non-nil fields.
type UpdateChapter struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Position    *int    `json:"position"`
}

// Validate rejects out-of-range fields.
func (in UpdateChapter) Validate() error {
	if in.Title != nil {
		if err := validTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.Position != nil && *in.Position < 0 {
		return invalid("position must not be negative")
	}
	return nil
}

func validTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("title is required")
	}
	if len(title) > 255 {
		return invalid("title must be at most 255 characters")
	}
	return nil
}

const chapterColumns = `id, course_id, title, description, position, created_at, updated_at`

func scanChapter(row scanner) (*Chapter, error) {
	var c Chapter
	if err := row.Scan(&c.ID, &c.CourseID, &c.Title, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Chapters manages the chapters table. Two chapters of one course cannot
// share a position.
type Chapters struct {
	*store
}

// Create inserts a chapter.
func (c *Chapters) Create(ctx context.Context, in CreateChapter) (*Chapter, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := c.now()
	return one(ctx, c.store, "chapters", "Create", `
		INSERT INTO chapters (`+chapterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+chapterColumns,
		[]interface{}{c.newID(), strings.TrimSpace(in.CourseID), strings.TrimSpace(in.Title), in.Description, in.Position, now, now},
		scanChapter)
}

// Get loads a chapter by id.
func (c *Chapters) Get(ctx context.Context, id string) (*Chapter, error) {
	return one(ctx, c.store, "chapters", "Get",
		`SELECT `+chapterColumns+` FROM chapters WHERE id = $1`, []interface{}{id}, scanChapter)
}

// List returns chapters ordered by course and position. ParentID filters by
// course.
func (c *Chapters) List(ctx context.Context, p ListParams) ([]*Chapter, error) {
	f := &filter{}
	f.eq("course_id", p.ParentID)
	return list(ctx, c.store, "chapters", chapterColumns, "course_id, position", f, p, scanChapter)
}

// Update applies the non-nil fields of in.
func (c *Chapters) Update(ctx context.Context, id string, in UpdateChapter) (*Chapter, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, c.store, "chapters", "Update", `
		UPDATE chapters
		SET title = COALESCE($1, title),
			description = COALESCE($2, description),
			position = COALESCE($3, position),
			updated_at = $4
		WHERE id = $5
		RETURNING `+chapterColumns,
		[]interface{}{sqlstore.NullString(trimmed(in.Title)), sqlstore.NullString(in.Description), nullInt(in.Position), c.now(), id},
		scanChapter)
}

// Delete removes a chapter and, by cascade, its notes.
func (c *Chapters) Delete(ctx context.Context, id string) error {
	return c.delete(ctx, "chapters", id)
}
