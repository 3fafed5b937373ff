package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduvault/eduvault/core"
)

// Material kinds
const (
	MaterialDocument = "document"
	MaterialVideo    = "video"
	MaterialLink     = "link"
)

type (
	// Member is the public summary of an account referenced by a course
	// (its instructor or an enrolled student).
	Member struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Submission struct {
		StudentID   string    `json:"student_id"`
		SubmittedAt time.Time `json:"submitted_at"`
		Content     string    `json:"content"`
		Grade       *float64  `json:"grade,omitempty"`
		Feedback    string    `json:"feedback,omitempty"`
	}

	Assignment struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		DueDate     time.Time    `json:"due_date"`
		Points      float64      `json:"points"`
		Submissions []Submission `json:"submissions,omitempty"`
	}

	Material struct {
		Title      string    `json:"title"`
		Kind       string    `json:"kind"`
		Content    string    `json:"content"`
		UploadedAt time.Time `json:"uploaded_at"`
	}

	Course struct {
		ID           string       `json:"id"`
		Title        string       `json:"title"`
		Description  string       `json:"description"`
		InstructorID string       `json:"instructor_id"`
		Instructor   *Member      `json:"instructor,omitempty"`
		Students     []Member     `json:"students"`
		Assignments  []Assignment `json:"assignments"`
		Materials    []Material   `json:"materials"`
		StartDate    time.Time    `json:"start_date"`
		EndDate      time.Time    `json:"end_date"`
		IsActive     bool         `json:"is_active"`
		CreatedAt    time.Time    `json:"created_at"` // UTC
		UpdatedAt    time.Time    `json:"updated_at"` // UTC
	}
)

// HasStudent reports membership of the enrolled-student set.
func (c *Course) HasStudent(studentID string) bool {
	for _, s := range c.Students {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
// The instructor is never client-supplied; it is set to the creating account.
type NewCourse struct {
	Title       string    `json:"title" validate:"required,notblank"`
	Description string    `json:"description" validate:"required,notblank"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course; only fields present in the patch are applied.
type UpdateCourse struct {
	Title       *string       `json:"title" validate:"omitempty,notblank"`
	Description *string       `json:"description" validate:"omitempty,notblank"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	IsActive    *bool         `json:"is_active"`
	Assignments *[]Assignment `json:"assignments"`
	Materials   *[]Material   `json:"materials"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	return validate.Struct(uc)
}

// QueryFilter selects courses by their relation to an account.
// At most one field should be set.
type QueryFilter struct {
	InstructorID string
	StudentID    string // courses where the account is enrolled
	NotStudentID string // complement: courses where the account is NOT enrolled
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.InstructorID == "" && qf.StudentID == "" && qf.NotStudentID == ""
}
