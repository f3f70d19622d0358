package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Level is a difficulty tier. Name and rank are both unique.
type Level struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Rank        int       `json:"rank"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateLevel is the input for Levels.Create.
type CreateLevel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
}

// Validate rejects empty names and non-positive ranks.
func (in CreateLevel) Validate() error {
	if err := validLevelName(in.Name); err != nil {
		return err
	}
	if in.Rank < 1 {
		return invalid("rank must be at least 1")
	}
	return nil
}

// UpdateLevel changes the non-nil fields.
type UpdateLevel struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Rank        *int    `json:"rank"`
}

// Validate rejects empty names and non-positive ranks.
func (in UpdateLevel) Validate() error {
	if in.Name != nil {
		if err := validLevelName(*in.Name); err != nil {
			return err
		}
	}
	if in.Rank != nil && *in.Rank < 1 {
		return invalid("rank must be at least 1")
	}
	return nil
}

func validLevelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name is required")
	}
	if len(name) > 100 {
		return invalid("name must be at most 100 characters")
	}
	return nil
}

const levelColumns = `id, name, description, rank, created_at, updated_at`

func scanLevel(row scanner) (*Level, error) {
	var l Level
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.Rank, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Levels manages the levels table.
type Levels struct {
	*store
}

// Create inserts a level. A taken name or rank is ErrConflict.
func (l *Levels) Create(ctx context.Context, in CreateLevel) (*Level, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := l.now()
	return one(ctx, l.store, "levels", "Create", `
		INSERT INTO levels (`+levelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+levelColumns,
		[]interface{}{l.newID(), strings.TrimSpace(in.Name), in.Description, in.Rank, now, now},
		scanLevel)
}

// Get loads a level by id.
func (l *Levels) Get(ctx context.Context, id string) (*Level, error) {
	return one(ctx, l.store, "levels", "Get",
		`SELECT `+levelColumns+` FROM levels WHERE id = $1`, []interface{}{id}, scanLevel)
}

// List returns levels in rank order.
func (l *Levels) List(ctx context.Context, p ListParams) ([]*Level, error) {
	return list(ctx, l.store, "levels", levelColumns, "rank", &filter{}, p, scanLevel)
}

// Update applies the non-nil fields of in.
func (l *Levels) Update(ctx context.Context, id string, in UpdateLevel) (*Level, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, l.store, "levels", "Update", `
		UPDATE levels
		SET name = COALESCE($1, name),
			description = COALESCE($2, description),
			rank = COALESCE($3, rank),
			updated_at = $4
		WHERE id = $5
		RETURNING `+levelColumns,
		[]interface{}{sqlstore.NullString(trimmed(in.Name)), sqlstore.NullString(in.Description), nullInt(in.Rank), l.now(), id},
		scanLevel)
}

// Delete removes a level.
func (l *Levels) Delete(ctx context.Context, id string) error {
	return l.delete(ctx, "levels", id)
}
