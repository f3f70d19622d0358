package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Transaction kinds and states.
const (
	TransactionSale   = "SALE"
	TransactionPayout = "PAYOUT"
	TransactionRefund = "REFUND"

	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
	TransactionFailed    = "FAILED"
)

// InstructorCourseTransaction is money moving between the platform and an
// instructor for a course.
type InstructorCourseTransaction struct {
	ID           string    `json:"id"`
	InstructorID string    `json:"instructorId"`
	CourseID     string    `json:"courseId"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Note         string    `json:"note"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Owner returns the instructor.
func (t *InstructorCourseTransaction) Owner() string { return t.InstructorID }

// CreateInstructorTransaction is the input for InstructorTransactions.Create.
type CreateInstructorTransaction struct {
	InstructorID string `json:"instructorId"`
	CourseID     string `json:"courseId"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Kind         string `json:"kind"`
	Note         string `json:"note"`
}

// Validate requires a positive amount and a known kind.
func (in CreateInstructorTransaction) Validate() error {
	if strings.TrimSpace(in.InstructorID) == "" {
		return invalid("instructorId is required")
	}
	if strings.TrimSpace(in.CourseID) == "" {
		return invalid("courseId is required")
	}
	if in.Amount <= 0 {
		return invalid("amount must be positive")
	}
	if in.Currency != "" && !currencyPattern.MatchString(in.Currency) {
		return invalid("currency must be a 3-letter ISO code")
	}
	switch in.Kind {
	case TransactionSale, TransactionPayout, TransactionRefund:
	default:
		return invalid("kind must be SALE, PAYOUT or REFUND")
	}
	return nil
}

// UpdateInstructorTransaction settles a transaction.
type UpdateInstructorTransaction struct {
	Status *string `json:"status"`
	Note   *string `json:"note"`
}

// Validate checks the status value.
func (in UpdateInstructorTransaction) Validate() error {
	if in.Status != nil {
		switch *in.Status {
		case TransactionPending, TransactionCompleted, TransactionFailed:
		default:
			return invalid("status must be PENDING, COMPLETED or FAILED")
		}
	}
	return nil
}

const transactionColumns = `id, instructor_id, course_id, amount, currency, kind, status, note, created_at, updated_at`

func scanTransaction(row scanner) (*InstructorCourseTransaction, error) {
	var t InstructorCourseTransaction
	if err := row.Scan(&t.ID, &t.InstructorID, &t.CourseID, &t.Amount, &t.Currency, &t.Kind, &t.Status, &t.Note, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// InstructorTransactions manages the instructor_course_transactions table.
type InstructorTransactions struct {
	*store
}

// Create records a PENDING transaction.
func (it *InstructorTransactions) Create(ctx context.Context, in CreateInstructorTransaction) (*InstructorCourseTransaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = "VND"
	}
	now := it.now()
	return one(ctx, it.store, "instructor_course_transactions", "Create", `
		INSERT INTO instructor_course_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		[]interface{}{it.newID(), strings.TrimSpace(in.InstructorID), strings.TrimSpace(in.CourseID), in.Amount, currency,
			in.Kind, TransactionPending, in.Note, now, now},
		scanTransaction)
}

// Get loads a transaction by id.
func (it *InstructorTransactions) Get(ctx context.Context, id string) (*InstructorCourseTransaction, error) {
	return one(ctx, it.store, "instructor_course_transactions", "Get",
		`SELECT `+transactionColumns+` FROM instructor_course_transactions WHERE id = $1`, []interface{}{id}, scanTransaction)
}

// List returns transactions newest first. OwnerID filters by instructor and
// ParentID by course.
func (it *InstructorTransactions) List(ctx context.Context, p ListParams) ([]*InstructorCourseTransaction, error) {
	f := &filter{}
	f.eq("instructor_id", p.OwnerID)
	f.eq("course_id", p.ParentID)
	return list(ctx, it.store, "instructor_course_transactions", transactionColumns, "created_at DESC, id", f, p, scanTransaction)
}

// Update applies the non-nil fields of in.
func (it *InstructorTransactions) Update(ctx context.Context, id string, in UpdateInstructorTransaction) (*InstructorCourseTransaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, it.store, "instructor_course_transactions", "Update", `
		UPDATE instructor_course_transactions
		SET status = COALESCE($1, status),
			note = COALESCE($2, note),
			updated_at = $3
		WHERE id = $4
		RETURNING `+transactionColumns,
		[]interface{}{sqlstore.NullString(in.Status), sqlstore.NullString(in.Note), it.now(), id},
		scanTransaction)
}

// Delete removes a transaction.
func (it *InstructorTransactions) Delete(ctx context.Context, id string) error {
	return it.delete(ctx, "instructor_course_transactions", id)
}
