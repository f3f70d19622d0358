package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Confirmation states. Only PENDING confirmations can be edited or reviewed.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Document sides accepted by UploadDocument.
const (
	SideFront = "front"
	SideBack  = "back"
)

var citizenIDPattern = regexp.MustCompile(`^[0-9]{9}$|^[0-9]{12}$`)

// CitizenIDConfirmation is a user's identity document awaiting review.
type CitizenIDConfirmation struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	CitizenID     string     `json:"citizenId"`
	FullName      string     `json:"fullName"`
	FrontImageURL string     `json:"frontImageUrl"`
	BackImageURL  string     `json:"backImageUrl"`
	Status        string     `json:"status"`
	ReviewerNote  string     `json:"reviewerNote"`
	ReviewedBy    *string    `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Owner returns the submitting user.
func (c *CitizenIDConfirmation) Owner() string { return c.UserID }

// CreateCitizenID is the input for CitizenIDs.Create.
type CreateCitizenID struct {
	UserID    string `json:"userId"`
	CitizenID string `json:"citizenId"`
	FullName  string `json:"fullName"`
}

func (in *CreateCitizenID) setOwner(id string) { in.UserID = id }
func (in *CreateCitizenID) owner() string { return in.UserID }

// Validate requires a 9 or 12 digit id number and a name.
func (in CreateCitizenID) Validate() error {
	if in.UserID == "" {
		return invalid("userId is required")
	}
	if !citizenIDPattern.MatchString(in.CitizenID) {
		return invalid("citizenId must be 9 or 12 digits")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return invalid("fullName is required")
	}
	return nil
}

// UpdateCitizenID corrects a pending submission.
type UpdateCitizenID struct {
	CitizenID *string `json:"citizenId"`
	FullName  *string `json:"fullName"`
}

// Validate checks the id format.
func (in UpdateCitizenID) Validate() error {
	if in.CitizenID != nil && !citizenIDPattern.MatchString(*in.CitizenID) {
		return invalid("citizenId must be 9 or 12 digits")
	}
	if in.FullName != nil && strings.TrimSpace(*in.FullName) == "" {
		return invalid("fullName must not be blank")
	}
	return nil
}

// ReviewCitizenID is a reviewer's decision.
type ReviewCitizenID struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// Validate accepts APPROVED or REJECTED. A rejection needs a note.
func (in ReviewCitizenID) Validate() error {
	switch in.Status {
	case StatusApproved:
	case StatusRejected:
		if strings.TrimSpace(in.Note) == "" {
			return invalid("a note is required when rejecting")
		}
	default:
		return invalid("status must be APPROVED or REJECTED")
	}
	return nil
}

const citizenIDColumns = `id, user_id, citizen_id, full_name, front_image_url, back_image_url, status, reviewer_note, reviewed_by, reviewed_at, created_at, updated_at`

func scanCitizenID(row scanner) (*CitizenIDConfirmation, error) {
	var (
		c          CitizenIDConfirmation
		reviewedBy sql.NullString
		reviewedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.CitizenID, &c.FullName, &c.FrontImageURL, &c.BackImageURL,
		&c.Status, &c.ReviewerNote, &reviewedBy, &reviewedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ReviewedBy = sqlstore.StringPtr(reviewedBy)
	if reviewedAt.Valid {
		c.ReviewedAt = &reviewedAt.Time
	}
	return &c, nil
}

// CitizenIDs manages identity confirmations and their document images.
type CitizenIDs struct {
	*store
	documents sqlstore.DocumentStore
}

// Create submits a confirmation. A user may hold only one, and an id number
// may be claimed only once.
func (c *CitizenIDs) Create(ctx context.Context, in CreateCitizenID) (*CitizenIDConfirmation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := c.now()
	return one(ctx, c.store, "citizen_id_confirmations", "Create", `
		INSERT INTO citizen_id_confirmations (id, user_id, citizen_id, full_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+citizenIDColumns,
		[]interface{}{c.newID(), in.UserID, in.CitizenID, strings.TrimSpace(in.FullName), StatusPending, now, now},
		scanCitizenID)
}

// Get loads a confirmation by id.
func (c *CitizenIDs) Get(ctx context.Context, id string) (*CitizenIDConfirmation, error) {
	return one(ctx, c.store, "citizen_id_confirmations", "Get",
		`SELECT `+citizenIDColumns+` FROM citizen_id_confirmations WHERE id = $1`, []interface{}{id}, scanCitizenID)
}

// List returns confirmations oldest first. OwnerID filters by user and
// ParentID by status.
func (c *CitizenIDs) List(ctx context.Context, p ListParams) ([]*CitizenIDConfirmation, error) {
	f := &filter{}
	f.eq("user_id", p.OwnerID)
	f.eq("status", strings.ToUpper(p.ParentID))
	return list(ctx, c.store, "citizen_id_confirmations", citizenIDColumns, "created_at, id", f, p, scanCitizenID)
}

// Update corrects a pending confirmation. A reviewed one is
// ErrAlreadyReviewed.
func (c *CitizenIDs) Update(ctx context.Context, id string, in UpdateCitizenID) (*CitizenIDConfirmation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	out, err := one(ctx, c.store, "citizen_id_confirmations", "Update", `
		UPDATE citizen_id_confirmations
		SET citizen_id = COALESCE($1, citizen_id),
			full_name = COALESCE($2, full_name),
			updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+citizenIDColumns,
		[]interface{}{sqlstore.NullString(in.CitizenID), sqlstore.NullString(trimmed(in.FullName)), c.now(), id, StatusPending},
		scanCitizenID)
	return out, c.pendingMiss(ctx, id, err)
}

// Review records a reviewer's decision on a pending confirmation.
func (c *CitizenIDs) Review(ctx context.Context, id, reviewerID string, in ReviewCitizenID) (*CitizenIDConfirmation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := c.now()
	out, err := one(ctx, c.store, "citizen_id_confirmations", "Review", `
		UPDATE citizen_id_confirmations
		SET status = $1,
			reviewer_note = $2,
			reviewed_by = $3,
			reviewed_at = $4,
			updated_at = $5
		WHERE id = $6 AND status = $7
		RETURNING `+citizenIDColumns,
		[]interface{}{in.Status, in.Note, reviewerID, now, now, id, StatusPending},
		scanCitizenID)
	return out, c.pendingMiss(ctx, id, err)
}

// UploadDocument stores one side of the identity document and records its
// URL on a pending confirmation.
func (c *CitizenIDs) UploadDocument(ctx context.Context, id, side, contentType string, body io.Reader) (*CitizenIDConfirmation, error) {
	column := map[string]string{SideFront: "front_image_url", SideBack: "back_image_url"}[side]
	if column == "" {
		return nil, invalid("side must be front or back")
	}
	if c.documents == nil {
		return nil, sqlstore.ErrDocumentsDisabled
	}

	existing, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusPending {
		return nil, ErrAlreadyReviewed
	}

	key := fmt.Sprintf("citizen-ids/%s/%s-%s", id, side, c.newID())
	url, err := c.documents.Put(ctx, key, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s image: %w", side, err)
	}

	out, err := one(ctx, c.store, "citizen_id_confirmations", "UploadDocument", `
		UPDATE citizen_id_confirmations SET `+column+` = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+citizenIDColumns,
		[]interface{}{url, c.now(), id, StatusPending},
		scanCitizenID)
	return out, c.pendingMiss(ctx, id, err)
}

// Delete withdraws a confirmation.
func (c *CitizenIDs) Delete(ctx context.Context, id string) error {
	return c.delete(ctx, "citizen_id_confirmations", id)
}

// pendingMiss tells a missing row apart from one that is no longer pending.
func (c *CitizenIDs) pendingMiss(ctx context.Context, id string, err error) error {
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, getErr := c.Get(ctx, id); getErr == nil {
		return ErrAlreadyReviewed
	}
	return ErrNotFound
}
