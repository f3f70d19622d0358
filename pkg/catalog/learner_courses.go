package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// Enrollment states.
const (
	EnrollmentEnrolled  = "ENROLLED"
	EnrollmentCompleted = "COMPLETED"
	EnrollmentDropped   = "DROPPED"
)

// LearnerCourse is a learner's enrollment in a course.
type LearnerCourse struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learnerId"`
	CourseID  string    `json:"courseId"`
	Progress  int       `json:"progress"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner returns the enrolled learner.
func (l *LearnerCourse) Owner() string { return l.LearnerID }

// CreateLearnerCourse enrolls a learner.
type CreateLearnerCourse struct {
	LearnerID string `json:"learnerId"`
	CourseID  string `json:"courseId"`
}

func (in *CreateLearnerCourse) setOwner(id string) { in.LearnerID = id }
func (in *CreateLearnerCourse) owner() string { return in.LearnerID }

// Validate requires a learner and a course.
func (in CreateLearnerCourse) Validate() error {
	if in.LearnerID == "" {
		return invalid("learnerId is required")
	}
	if strings.TrimSpace(in.CourseID) == "" {
		return invalid("courseId is required")
	}
	return nil
}

// UpdateLearnerCourse records progress or a status change.
type UpdateLearnerCourse struct {
	Progress *int    `json:"progress"`
	Status   *string `json:"status"`
}

// Validate checks the progress range and status value.
func (in UpdateLearnerCourse) Validate() error {
	if in.Progress != nil && (*in.Progress < 0 || *in.Progress > 100) {
		return invalid("progress must be between 0 and 100")
	}
	if in.Status != nil {
		switch *in.Status {
		case EnrollmentEnrolled, EnrollmentCompleted, EnrollmentDropped:
		default:
			return invalid("status must be ENROLLED, COMPLETED or DROPPED")
		}
	}
	return nil
}

const learnerCourseColumns = `id, learner_id, course_id, progress, status, created_at, updated_at`

func scanLearnerCourse(row scanner) (*LearnerCourse, error) {
	var l LearnerCourse
	if err := row.Scan(&l.ID, &l.LearnerID, &l.CourseID, &l.Progress, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// LearnerCourses manages enrollments. A learner can enroll in a course once.
type LearnerCourses struct {
	*store
}

// Create enrolls a learner. A repeat enrollment is ErrConflict.
func (lc *LearnerCourses) Create(ctx context.Context, in CreateLearnerCourse) (*LearnerCourse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := lc.now()
	return one(ctx, lc.store, "learner_courses", "Create", `
		INSERT INTO learner_courses (`+learnerCourseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+learnerCourseColumns,
		[]interface{}{lc.newID(), in.LearnerID, strings.TrimSpace(in.CourseID), 0, EnrollmentEnrolled, now, now},
		scanLearnerCourse)
}

// Get loads an enrollment by id.
func (lc *LearnerCourses) Get(ctx context.Context, id string) (*LearnerCourse, error) {
	return one(ctx, lc.store, "learner_courses", "Get",
		`SELECT `+learnerCourseColumns+` FROM learner_courses WHERE id = $1`, []interface{}{id}, scanLearnerCourse)
}

// List returns enrollments. OwnerID filters by learner and ParentID by course.
func (lc *LearnerCourses) List(ctx context.Context, p ListParams) ([]*LearnerCourse, error) {
	f := &filter{}
	f.eq("learner_id", p.OwnerID)
	f.eq("course_id", p.ParentID)
	return list(ctx, lc.store, "learner_courses", learnerCourseColumns, "created_at, id", f, p, scanLearnerCourse)
}

// Update records progress. Reaching 100 without an explicit status marks the
// enrollment COMPLETED.
func (lc *LearnerCourses) Update(ctx context.Context, id string, in UpdateLearnerCourse) (*LearnerCourse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == nil && in.Progress != nil && *in.Progress == 100 {
		status = strPtr(EnrollmentCompleted)
	}
	return one(ctx, lc.store, "learner_courses", "Update", `
		UPDATE learner_courses
		SET progress = COALESCE($1, progress),
			status = COALESCE($2, status),
			updated_at = $3
		WHERE id = $4
		RETURNING `+learnerCourseColumns,
		[]interface{}{nullInt(in.Progress), sqlstore.NullString(status), lc.now(), id},
		scanLearnerCourse)
}

// Delete removes an enrollment.
func (lc *LearnerCourses) Delete(ctx context.Context, id string) error {
	return lc.delete(ctx, "learner_courses", id)
}
