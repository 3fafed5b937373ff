package course

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/user"
)

var (
	// ErrNotFound is returned when a course lookup yields nothing.
	ErrNotFound = errors.New("course not found")
	// ErrAlreadyEnrolled is returned by Enroll when the student is already
	// a member of the course.
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	// ErrNotEnrolled is returned by Unenroll when the student is not
	// a member of the course.
	ErrNotEnrolled = errors.New("not enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c *Course) error
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, c *Course) error
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)
		// AddStudent atomically checks membership and enrolls; it returns
		// ErrAlreadyEnrolled without modifying the ledger otherwise.
		AddStudent(ctx context.Context, courseID, studentID string) error
		// RemoveStudent atomically checks membership and withdraws; it
		// returns ErrNotEnrolled without modifying the ledger otherwise.
		RemoveStudent(ctx context.Context, courseID, studentID string) error
	}

	Service interface {
		Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error)
		QueryAll(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Teaching(ctx context.Context, instructorID string) ([]Course, error)
		Enrolled(ctx context.Context, studentID string) ([]Course, error)
		Available(ctx context.Context, studentID string) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		Enroll(ctx context.Context, courseID, studentID string) (Course, error)
		Unenroll(ctx context.Context, courseID, studentID string) (Course, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, instructor user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	c := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		InstructorID: instructor.ID,
		Instructor:   &Member{ID: instructor.ID, Name: instructor.Name, Email: instructor.Email},
		Students:     []Member{},
		Assignments:  []Assignment{},
		Materials:    []Material{},
		StartDate:    nc.StartDate,
		EndDate:      nc.EndDate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := svc.repo.CreateCourse(ctx, &c); err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, nil, core.DBOrdering{Field: "created_at"})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Teaching(ctx context.Context, instructorID string) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, &QueryFilter{InstructorID: instructorID}, core.DBOrdering{Field: "created_at"})
	if err != nil {
		return nil, errors.Wrap(err, "querying taught courses")
	}
	return courses, nil
}

func (svc *service) Enrolled(ctx context.Context, studentID string) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, &QueryFilter{StudentID: studentID}, core.DBOrdering{Field: "created_at"})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return courses, nil
}

func (svc *service) Available(ctx context.Context, studentID string) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, &QueryFilter{NotStudentID: studentID}, core.DBOrdering{Field: "created_at"})
	if err != nil {
		return nil, errors.Wrap(err, "querying available courses")
	}
	return courses, nil
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != nil {
		c.Title = *uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.StartDate != nil {
		c.StartDate = *uc.StartDate
	}
	if uc.EndDate != nil {
		c.EndDate = *uc.EndDate
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	if uc.Assignments != nil {
		c.Assignments = *uc.Assignments
	}
	if uc.Materials != nil {
		c.Materials = *uc.Materials
	}
	c.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateCourse(ctx, &c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	return c, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	count, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *service) Enroll(ctx context.Context, courseID, studentID string) (Course, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Course{}, err
	}
	if err := svc.repo.AddStudent(ctx, courseID, studentID); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourseByID(ctx, courseID)
}

func (svc *service) Unenroll(ctx context.Context, courseID, studentID string) (Course, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Course{}, err
	}
	if err := svc.repo.RemoveStudent(ctx, courseID, studentID); err != nil {
		return Course{}, err
	}
	return svc.repo.GetCourseByID(ctx, courseID)
}

var (
	materialKindTag  = "materialkind"
	materialKindText = "material kind must be one of: document, video, link"
)

// InitValidators registers this package's custom validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, materialKindTag, materialKindText)

	validate.RegisterStructValidation(newCourseStructValidation, NewCourse{})
	validate.RegisterStructValidation(updateCourseStructValidation, UpdateCourse{})
}

func newCourseStructValidation(sl validator.StructLevel) {
	nc := sl.Current().Interface().(NewCourse)
	if !nc.StartDate.IsZero() && !nc.EndDate.IsZero() && !nc.EndDate.After(nc.StartDate) {
		sl.ReportError(nc.EndDate, "end_date", "EndDate", "gtfield", "start_date")
	}
}

func updateCourseStructValidation(sl validator.StructLevel) {
	uc := sl.Current().Interface().(UpdateCourse)
	if uc.StartDate != nil && uc.EndDate != nil && !uc.EndDate.After(*uc.StartDate) {
		sl.ReportError(*uc.EndDate, "end_date", "EndDate", "gtfield", "start_date")
	}
	if uc.Materials != nil {
		for _, m := range *uc.Materials {
			switch m.Kind {
			case MaterialDocument, MaterialVideo, MaterialLink:
			default:
				sl.ReportError(m.Kind, "materials", "Materials", "materialkind", "")
			}
		}
	}
}
