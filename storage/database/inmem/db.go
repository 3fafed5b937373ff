package inmemdb

import (
	"sync"

	"github.com/eduvault/eduvault/core/course"
	"github.com/eduvault/eduvault/core/user"
)

type (
	DB struct {
		user   *userTable
		course *courseTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table       map[string]*course.Course
		enrollments map[string]map[string]bool // courseID -> studentID set
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			table:       make(map[string]*course.Course),
			enrollments: make(map[string]map[string]bool),
		},
	}
	return db, nil
}
