package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// assignmentsJSON maps []course.Assignment to a jsonb column.
type assignmentsJSON []course.Assignment

func (a assignmentsJSON) Value() (driver.Value, error) {
	if a == nil {
		a = assignmentsJSON{}
	}
	return json.Marshal(a)
}

func (a *assignmentsJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("unexpected assignments column type")
	}
	return json.Unmarshal(b, a)
}

// materialsJSON maps []course.Material to a jsonb column.
type materialsJSON []course.Material

func (m materialsJSON) Value() (driver.Value, error) {
	if m == nil {
		m = materialsJSON{}
	}
	return json.Marshal(m)
}

func (m *materialsJSON) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return errors.New("unexpected materials column type")
	}
	return json.Unmarshal(b, m)
}

type courseRow struct {
	ID              string          `db:"id"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	InstructorID    string          `db:"instructor_id"`
	InstructorName  sql.NullString  `db:"instructor_name"`
	InstructorEmail sql.NullString  `db:"instructor_email"`
	Assignments     assignmentsJSON `db:"assignments"`
	Materials       materialsJSON   `db:"materials"`
	StartDate       time.Time       `db:"start_date"`
	EndDate         time.Time       `db:"end_date"`
	IsActive        bool            `db:"is_active"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type memberRow struct {
	CourseID string `db:"course_id"`
	ID       string `db:"id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
}

const courseSelect = `
	SELECT c.id, c.title, c.description, c.instructor_id,
		u.name AS instructor_name, u.email AS instructor_email,
		c.assignments, c.materials, c.start_date, c.end_date,
		c.is_active, c.created_at, c.updated_at
	FROM course c
	LEFT JOIN "user" u ON u.id = c.instructor_id`

func (repo courseRepository) fromRow(row courseRow) course.Course {
	c := course.Course{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description,
		InstructorID: row.InstructorID,
		Students:     []course.Member{},
		Assignments:  row.Assignments,
		Materials:    row.Materials,
		StartDate:    row.StartDate,
		EndDate:      row.EndDate,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.InstructorName.Valid {
		c.Instructor = &course.Member{ID: row.InstructorID, Name: row.InstructorName.String, Email: row.InstructorEmail.String}
	}
	if c.Assignments == nil {
		c.Assignments = []course.Assignment{}
	}
	if c.Materials == nil {
		c.Materials = []course.Material{}
	}
	return c
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// loadStudents attaches the enrolled-student sets of the given courses.
func (repo courseRepository) loadStudents(ctx context.Context, courses []course.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}

	query, args, err := sqlx.In(`
		SELECT cs.course_id, u.id, u.name, u.email
		FROM course_student cs
		JOIN "user" u ON u.id = cs.student_id
		WHERE cs.course_id IN (?)
		ORDER BY cs.enrolled_at`, ids)
	if err != nil {
		return errors.Wrap(err, "loading students")
	}

	var rows []memberRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "loading students")
	}

	byCourse := make(map[string][]course.Member, len(courses))
	for _, row := range rows {
		byCourse[row.CourseID] = append(byCourse[row.CourseID], course.Member{ID: row.ID, Name: row.Name, Email: row.Email})
	}
	for i := range courses {
		if members, ok := byCourse[courses[i].ID]; ok {
			courses[i].Students = members
		}
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c *course.Course) error {
	c.ID = uuid.New().String()
	query := `
		INSERT INTO course (id, title, description, instructor_id, assignments, materials,
			start_date, end_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		c.ID, c.Title, c.Description, c.InstructorID,
		assignmentsJSON(c.Assignments), materialsJSON(c.Materials),
		c.StartDate.UTC(), c.EndDate.UTC(), c.IsActive, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "inserting course")
	}
	return nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	query := courseSelect
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		switch {
		case filter.InstructorID != "":
			query += " WHERE c.instructor_id = $1"
			args = append(args, filter.InstructorID)
		case filter.StudentID != "":
			query += " WHERE EXISTS (SELECT 1 FROM course_student cs WHERE cs.course_id = c.id AND cs.student_id = $1)"
			args = append(args, filter.StudentID)
		case filter.NotStudentID != "":
			query += " WHERE NOT EXISTS (SELECT 1 FROM course_student cs WHERE cs.course_id = c.id AND cs.student_id = $1)"
			args = append(args, filter.NotStudentID)
		}
	}

	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			clauses = append(clauses, "c."+ord.String())
		}
		query += " ORDER BY " + strings.Join(clauses, ", ")
	}

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	if err := repo.loadStudents(ctx, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	if err := repo.db.GetContext(ctx, &row, courseSelect+" WHERE c.id = $1", id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}

	courses := []course.Course{repo.fromRow(row)}
	if err := repo.loadStudents(ctx, courses); err != nil {
		return course.Course{}, err
	}
	return courses[0], nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c *course.Course) error {
	query := `
		UPDATE course
		SET title = $2, description = $3, assignments = $4, materials = $5,
			start_date = $6, end_date = $7, is_active = $8, updated_at = $9
		WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		c.ID, c.Title, c.Description,
		assignmentsJSON(c.Assignments), materialsJSON(c.Materials),
		c.StartDate.UTC(), c.EndDate.UTC(), c.IsActive, c.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "updating course")
	} else if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, valid)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	return int(n), nil
}

func (repo courseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	query := `
		INSERT INTO course_student (course_id, student_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, courseID, studentID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "enrolling student")
	} else if n == 0 {
		return course.ErrAlreadyEnrolled
	}
	return nil
}

func (repo courseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	query := `DELETE FROM course_student WHERE course_id = $1 AND student_id = $2`
	res, err := repo.db.ExecContext(ctx, query, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "withdrawing student")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "withdrawing student")
	} else if n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}
