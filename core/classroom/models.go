package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mastersgang/backend/core"
)

// Join request statuses. Verification deletes the request outright, so
// nothing ever transitions out of pending; the field mirrors the stored shape.
const JoinStatusPending = "pending"

type (
	// Classroom tracks membership as a loose set of email strings, not
	// account references. A member email with no resolvable account is
	// acceptable; the set itself never holds duplicates.
	Classroom struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		OwnerID     string    `json:"owner"`
		Description string    `json:"description"`
		Members     []string  `json:"students"`
		Posts       []Post    `json:"posts"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	Post struct {
		ID          string    `json:"id"`
		ClassroomID string    `json:"class_id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		CreatedBy   string    `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	// JoinRequest is a pending ledger row keyed by (classroom, student email,
	// code). It is consumed (deleted) exactly once by a successful
	// verification and never reused. Unlike registration codes it carries no
	// TTL; it lives until consumed.
	JoinRequest struct {
		ID           string    `json:"id"`
		ClassroomID  string    `json:"classroom_id"`
		OwnerID      string    `json:"classroom_owner"`
		StudentEmail string    `json:"student_email"`
		OTP          string    `json:"-"`
		Status       string    `json:"status"`
		CreatedAt    time.Time `json:"created_at"` // UTC
	}
)

func (c *Classroom) HasMember(email string) bool {
	for _, m := range c.Members {
		if m == email {
			return true
		}
	}
	return false
}

// NewClassroom contains information needed to create a Classroom.
type NewClassroom struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// NewPost contains information needed to publish a Post to a Classroom.
type NewPost struct {
	ClassroomID string `json:"classId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (np *NewPost) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}

// JoinClassroom is a student's request for a one-time join code to be
// mailed to the classroom owner.
type JoinClassroom struct {
	ClassroomID  string `json:"classroomId" validate:"required"`
	StudentEmail string `json:"studentEmail" validate:"required,email"`
}

func (jc *JoinClassroom) Validate(validate *validator.Validate) error {
	jc.StudentEmail = core.CleanString(jc.StudentEmail, true /* lower */)
	return validate.Struct(jc)
}

// VerifyJoin presents a join code back for approval.
type VerifyJoin struct {
	ClassroomID  string `json:"classroomId" validate:"required"`
	StudentEmail string `json:"studentEmail" validate:"required"`
	OTP          string `json:"otp" validate:"required"`
}

func (vj *VerifyJoin) Validate(validate *validator.Validate) error {
	vj.StudentEmail = core.CleanString(vj.StudentEmail, true /* lower */)
	vj.OTP = core.CleanString(vj.OTP)
	return validate.Struct(vj)
}
