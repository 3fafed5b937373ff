package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eduvault/eduvault/core/course"
	"github.com/eduvault/eduvault/core/user"
)

func (env *testEnv) createCourse(t *testing.T, instructor user.User, title string) course.Course {
	t.Helper()
	crs, err := env.crsSvc.Create(context.Background(), instructor, course.NewCourse{
		Title:       title,
		Description: "An introduction to " + title,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func Test_courseApi_create(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tess", "tess@test.test", "S3cret!pwd", user.RoleTeacher)
	student := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	body := marchallObj(t, map[string]string{"title": "CS101", "description": "Intro to Computer Science"})

	tests := []httpTest{
		{name: "no token", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student forbidden", body: body, token: studentToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "missing title", body: marchallObj(t, map[string]string{"description": "no title"}), token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"})},
		{name: "teacher ok", body: body, token: teacherToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/courses", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var crs course.Course
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
				assert.NotEmpty(t, crs.ID)
				assert.Equal(t, teacher.ID, crs.InstructorID)
				if assert.NotNil(t, crs.Instructor) {
					assert.Equal(t, teacher.Name, crs.Instructor.Name)
				}
				assert.Empty(t, crs.Students)
				assert.True(t, crs.IsActive)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_query(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tess", "tess@test.test", "S3cret!pwd", user.RoleTeacher)
	student := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	env.createCourse(t, teacher, "CS101")
	env.createCourse(t, teacher, "CS102")

	for _, usr := range []user.User{teacher, student} {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, usr))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var courses []course.Course
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
		assert.Len(t, courses, 2)
	}
}

func Test_courseApi_roleScopedListings(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tess", "tess@test.test", "S3cret!pwd", user.RoleTeacher)
	other := env.createUser(t, "Ove", "ove@test.test", "S3cret!pwd", user.RoleTeacher)
	student := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	cs101 := env.createCourse(t, teacher, "CS101")
	env.createCourse(t, teacher, "CS102")
	env.createCourse(t, other, "MATH201")

	if _, err := env.crsSvc.Enroll(context.Background(), cs101.ID, student.ID); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	listLen := func(t *testing.T, path, token string, wantCode int) int {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, wantCode, rec.Code, rec.Body.String())
		if wantCode != http.StatusOK {
			return 0
		}
		var courses []course.Course
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
		return len(courses)
	}

	assert.Equal(t, 2, listLen(t, "/v1/courses/teaching", teacherToken, http.StatusOK))
	listLen(t, "/v1/courses/teaching", studentToken, http.StatusForbidden)

	assert.Equal(t, 1, listLen(t, "/v1/courses/enrolled", studentToken, http.StatusOK))
	assert.Equal(t, 2, listLen(t, "/v1/courses/available", studentToken, http.StatusOK))
	listLen(t, "/v1/courses/enrolled", teacherToken, http.StatusForbidden)
	listLen(t, "/v1/courses/available", teacherToken, http.StatusForbidden)
}

func Test_courseApi_enrollment(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "Tess", "tess@test.test", "S3cret!pwd", user.RoleTeacher)
	student := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	teacherToken := getToken(t, teacher)
	studentToken := getToken(t, student)

	cs101 := env.createCourse(t, teacher, "CS101")
	enrollPath := "/v1/courses/" + cs101.ID + "/enroll"
	unenrollPath := "/v1/courses/" + cs101.ID + "/unenroll"

	tests := []httpTest{
		{name: "teacher cannot enroll", method: http.MethodPost, path: enrollPath, token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "unenroll before enrolling", method: http.MethodDelete, path: unenrollPath, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "not enrolled in this course"})},
		{name: "enroll", method: http.MethodPost, path: enrollPath, token: studentToken, wantCode: http.StatusOK},
		{name: "enroll twice", method: http.MethodPost, path: enrollPath, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "already enrolled in this course"})},
		{name: "unenroll", method: http.MethodDelete, path: unenrollPath, token: studentToken, wantCode: http.StatusOK},
		{name: "unenroll twice", method: http.MethodDelete, path: unenrollPath, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "not enrolled in this course"})},
		{name: "unknown course", method: http.MethodPost, path: "/v1/courses/11111111-1111-1111-1111-111111111111/enroll",
			token: studentToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "enroll" {
				var crs course.Course
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
				if assert.Len(t, crs.Students, 1) {
					assert.Equal(t, student.ID, crs.Students[0].ID)
				}
			}
		})
	}
}

func Test_courseApi_ownership(t *testing.T) {
	env := setup(t)
	owner := env.createUser(t, "Tess", "tess@test.test", "S3cret!pwd", user.RoleTeacher)
	other := env.createUser(t, "Ove", "ove@test.test", "S3cret!pwd", user.RoleTeacher)
	admin := env.createUser(t, "Root", "root@test.test", "S3cret!pwd", user.RoleAdmin)
	ownerToken := getToken(t, owner)
	otherToken := getToken(t, other)
	adminToken := getToken(t, admin)

	cs101 := env.createCourse(t, owner, "CS101")
	path := "/v1/courses/" + cs101.ID
	patch := marchallObj(t, map[string]string{"title": "CS101: Revised"})

	tests := []httpTest{
		{name: "retrieve: any authed user", method: http.MethodGet, path: path, token: otherToken, wantCode: http.StatusOK},
		{name: "update: non-owner forbidden", method: http.MethodPut, path: path, token: otherToken, body: patch,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "update: owner ok", method: http.MethodPut, path: path, token: ownerToken, body: patch, wantCode: http.StatusOK},
		{name: "update: admin override", method: http.MethodPut, path: path, token: adminToken,
			body: marchallObj(t, map[string]bool{"is_active": false}), wantCode: http.StatusOK},
		{name: "delete: non-owner forbidden", method: http.MethodDelete, path: path, token: otherToken, wantCode: http.StatusForbidden},
		{name: "delete: owner ok", method: http.MethodDelete, path: path, token: ownerToken, wantCode: http.StatusNoContent},
		{name: "delete: gone", method: http.MethodDelete, path: path, token: ownerToken, wantCode: http.StatusNotFound},
		{name: "retrieve: gone", method: http.MethodGet, path: path, token: ownerToken, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "update: owner ok" {
				var crs course.Course
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
				assert.Equal(t, "CS101: Revised", crs.Title)
			}
		})
	}
}
