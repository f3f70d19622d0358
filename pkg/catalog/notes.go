package catalog

import (
	"context"
	"strings"
	"time"
)

// Note is a learner's private note on a chapter.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ChapterID string    `json:"chapterId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner returns the note's author.
func (n *Note) Owner() string { return n.UserID }

// CreateNote is the input for Notes.Create. UserID is set from the caller.
type CreateNote struct {
	UserID    string `json:"userId"`
	ChapterID string `json:"chapterId"`
	Content   string `json:"content"`
}

func (in *CreateNote) setOwner(id string) { in.UserID = id }
func (in *CreateNote) owner() string { return in.UserID }

// Validate requires an author, a chapter and some content.
func (in CreateNote) Validate() error {
	if in.UserID == "" {
		return invalid("userId is required")
	}
	if strings.TrimSpace(in.ChapterID) == "" {
		return invalid("chapterId is required")
	}
	return validContent(in.Content)
}

// UpdateNote replaces the content.
type UpdateNote struct {
	Content *string `json:"content"`
}

// Validate rejects blank content.
func (in UpdateNote) Validate() error {
	if in.Content == nil {
		return invalid("content is required")
	}
	return validContent(*in.Content)
}

func validContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalid("content is required")
	}
	if len(content) > 10000 {
		return invalid("content must be at most 10000 characters")
	}
	return nil
}

const noteColumns = `id, user_id, chapter_id, content, created_at, updated_at`

func scanNote(row scanner) (*Note, error) {
	var n Note
	if err := row.Scan(&n.ID, &n.UserID, &n.ChapterID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// Notes manages the notes table.
type Notes struct {
	*store
}

// Create inserts a note. An unknown chapter is ErrInvalid.
func (n *Notes) Create(ctx context.Context, in CreateNote) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := n.now()
	return one(ctx, n.store, "notes", "Create", `
		INSERT INTO notes (`+noteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+noteColumns,
		[]interface{}{n.newID(), in.UserID, strings.TrimSpace(in.ChapterID), in.Content, now, now},
		scanNote)
}

// Get loads a note by id.
func (n *Notes) Get(ctx context.Context, id string) (*Note, error) {
	return one(ctx, n.store, "notes", "Get",
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, []interface{}{id}, scanNote)
}

// List returns notes newest first. OwnerID filters by author and ParentID by
// chapter.
func (n *Notes) List(ctx context.Context, p ListParams) ([]*Note, error) {
	f := &filter{}
	f.eq("user_id", p.OwnerID)
	f.eq("chapter_id", p.ParentID)
	return list(ctx, n.store, "notes", noteColumns, "created_at DESC, id", f, p, scanNote)
}

// Update replaces a note's content.
func (n *Notes) Update(ctx context.Context, id string, in UpdateNote) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, n.store, "notes", "Update", `
		UPDATE notes SET content = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+noteColumns,
		[]interface{}{*in.Content, n.now(), id},
		scanNote)
}

// Delete removes a note.
func (n *Notes) Delete(ctx context.Context, id string) error {
	return n.delete(ctx, "notes", id)
}
