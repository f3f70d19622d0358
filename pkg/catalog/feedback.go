package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Feedback is a learner's rating of a course.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner returns the author.
func (f *Feedback) Owner() string { return f.UserID }

// CreateFeedback is the input for FeedbackService.Create.
type CreateFeedback struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (in *CreateFeedback) setOwner(id string) { in.UserID = id }
func (in *CreateFeedback) owner() string { return in.UserID }

// Validate requires a course and a rating between 1 and 5.
func (in CreateFeedback) Validate() error {
	if in.UserID == "" {
		return invalid("userId is required")
	}
	if strings.TrimSpace(in.CourseID) == "" {
		return invalid("courseId is required")
	}
	return validRating(in.Rating)
}

// UpdateFeedback changes the non-nil fields.
type UpdateFeedback struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// Validate checks the rating range.
func (in UpdateFeedback) Validate() error {
	if in.Rating != nil {
		return validRating(*in.Rating)
	}
	return nil
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return invalid("rating must be between 1 and 5")
	}
	return nil
}

const feedbackColumns = `id, user_id, course_id, rating, comment, created_at, updated_at`

func scanFeedback(row scanner) (*Feedback, error) {
	var f Feedback
	if err := row.Scan(&f.ID, &f.UserID, &f.CourseID, &f.Rating, &f.Comment, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// FeedbackService manages the feedback table.
type FeedbackService struct {
	*store
}

// Create records feedback.
func (fs *FeedbackService) Create(ctx context.Context, in CreateFeedback) (*Feedback, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := fs.now()
	return one(ctx, fs.store, "feedback", "Create", `
		INSERT INTO feedback (`+feedbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+feedbackColumns,
		[]interface{}{fs.newID(), in.UserID, strings.TrimSpace(in.CourseID), in.Rating, in.Comment, now, now},
		scanFeedback)
}

// Get loads feedback by id.
func (fs *FeedbackService) Get(ctx context.Context, id string) (*Feedback, error) {
	return one(ctx, fs.store, "feedback", "Get",
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, []interface{}{id}, scanFeedback)
}

// List returns feedback newest first. ParentID filters by course and OwnerID
// by author.
func (fs *FeedbackService) List(ctx context.Context, p ListParams) ([]*Feedback, error) {
	f := &filter{}
	f.eq("user_id", p.OwnerID)
	f.eq("course_id", p.ParentID)
	return list(ctx, fs.store, "feedback", feedbackColumns, "created_at DESC, id", f, p, scanFeedback)
}

// Update applies the non-nil fields of in.
func (fs *FeedbackService) Update(ctx context.Context, id string, in UpdateFeedback) (*Feedback, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, fs.store, "feedback", "Update", `
		UPDATE feedback
		SET rating = COALESCE($1, rating),
			comment = COALESCE($2, comment),
			updated_at = $3
		WHERE id = $4
		RETURNING `+feedbackColumns,
		[]interface{}{nullInt(in.Rating), sqlstore.NullString(in.Comment), fs.now(), id},
		scanFeedback)
}

// Delete removes feedback.
func (fs *FeedbackService) Delete(ctx context.Context, id string) error {
	return fs.delete(ctx, "feedback", id)
}
