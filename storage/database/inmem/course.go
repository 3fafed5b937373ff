package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// member resolves an account to its public summary; zero value if unknown.
func (repo *courseRepository) member(id string) course.Member {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if usr, ok := repo.db.user.table[id]; ok {
		return course.Member{ID: usr.ID, Name: usr.Name, Email: usr.Email}
	}
	return course.Member{ID: id}
}

// load copies a stored course and attaches its instructor & student summaries.
// Callers must hold at least a read lock on the course table.
func (repo *courseRepository) load(c *course.Course) course.Course {
	out := *c
	instructor := repo.member(out.InstructorID)
	out.Instructor = &instructor

	students := make([]course.Member, 0)
	for studentID := range repo.db.course.enrollments[out.ID] {
		students = append(students, repo.member(studentID))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	out.Students = students

	if out.Assignments == nil {
		out.Assignments = []course.Assignment{}
	}
	if out.Materials == nil {
		out.Materials = []course.Material{}
	}
	return out
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c *course.Course) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	c.ID = uuid.New().String()
	stored := *c
	repo.db.course.table[c.ID] = &stored
	repo.db.course.enrollments[c.ID] = make(map[string]bool)
	return nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.course.table))
	for _, c := range repo.db.course.table {
		if filter != nil && !filter.IsEmpty() {
			switch {
			case filter.InstructorID != "":
				if c.InstructorID != filter.InstructorID {
					continue
				}
			case filter.StudentID != "":
				if !repo.db.course.enrollments[c.ID][filter.StudentID] {
					continue
				}
			case filter.NotStudentID != "":
				if repo.db.course.enrollments[c.ID][filter.NotStudentID] {
					continue
				}
			}
		}
		courses = append(courses, repo.load(c))
	}
	sortCourses(courses, ordering)
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.table[id]; ok {
		return repo.load(c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c *course.Course) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[c.ID]; !ok {
		return course.ErrNotFound
	}
	stored := *c
	repo.db.course.table[c.ID] = &stored
	return nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	var count int
	for _, id := range ids {
		if _, ok := repo.db.course.table[id]; ok {
			delete(repo.db.course.table, id)
			delete(repo.db.course.enrollments, id)
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) AddStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[courseID]; !ok {
		return course.ErrNotFound
	}
	if repo.db.course.enrollments[courseID][studentID] {
		return course.ErrAlreadyEnrolled
	}
	if repo.db.course.enrollments[courseID] == nil {
		repo.db.course.enrollments[courseID] = make(map[string]bool)
	}
	repo.db.course.enrollments[courseID][studentID] = true
	return nil
}

func (repo *courseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.table[courseID]; !ok {
		return course.ErrNotFound
	}
	if !repo.db.course.enrollments[courseID][studentID] {
		return course.ErrNotEnrolled
	}
	delete(repo.db.course.enrollments[courseID], studentID)
	return nil
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	ord := ordering[0]
	sort.Slice(courses, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "title":
			less = courses[i].Title < courses[j].Title
		default:
			less = courses[i].CreatedAt.Before(courses[j].CreatedAt)
		}
		if !ord.Ascending {
			return !less
		}
		return less
	})
}
