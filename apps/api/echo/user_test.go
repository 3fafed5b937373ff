package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eduvault/eduvault/core/user"
)

func (env *testEnv) createUser(t *testing.T, name, email, pwd, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func Test_userApi_signup(t *testing.T) {
	env := setup(t)

	body := func(name, email, pwd, role string) []byte {
		return marchallObj(t, map[string]string{
			"name": name, "email": email, "password": pwd, "password_confirm": pwd, "role": role,
		})
	}

	tests := []httpTest{
		{name: "student by default", body: body("Sam", "sam@test.test", "S3cret!pwd", ""), wantCode: http.StatusCreated},
		{name: "teacher", body: body("Tess", "tess@test.test", "S3cret!pwd", "teacher"), wantCode: http.StatusCreated},
		{name: "admin not self-claimable", body: body("Mal", "mal@test.test", "S3cret!pwd", "admin"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of: student, teacher"})},
		{name: "duplicate email", body: body("Sam2", "sam@test.test", "S3cret!pwd", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"})},
		{name: "weak password", body: body("Wes", "wes@test.test", "password", ""), wantCode: http.StatusBadRequest},
		{name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/signup", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var res AuthResponse
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.NotEmpty(t, res.Token)
				assert.NotEmpty(t, res.User.ID)
				assert.True(t, res.User.IsActive)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)

	body := func(email, pwd string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd})
	}

	tests := []httpTest{
		{name: "ok", body: body("sam@test.test", "S3cret!pwd"), wantCode: http.StatusOK},
		{name: "email is case-insensitive", body: body("SAM@Test.test", "S3cret!pwd"), wantCode: http.StatusOK},
		{name: "wrong password", body: body("sam@test.test", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "unknown email", body: body("ghost@test.test", "S3cret!pwd"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "missing password", body: body("sam@test.test", ""), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

				var res AuthResponse
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.NotEmpty(t, res.Token)
				assert.Equal(t, usr.ID, res.User.ID)
				assert.False(t, res.User.LastLogin.IsZero())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	env := setup(t)
	usr := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	token := getToken(t, usr)

	// stale role snapshot: token minted before a role change is refused
	stale := usr
	stale.Role = user.RoleTeacher
	staleToken := getToken(t, stale)

	expiredClaims := GetUserClaims(usr)
	expiredClaims.IssuedAt = time.Now().Add(-48 * time.Hour).Unix()
	expiredClaims.ExpiresAt = time.Now().Add(-24 * time.Hour).Unix()
	expiredToken, err := GenerateToken(expiredClaims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "expired token", method: http.MethodGet, token: expiredToken, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "ok", method: http.MethodGet, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
		{name: "role mismatch", method: http.MethodGet, token: staleToken, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "role has changed, please log in again"})},
		{name: "update name", method: http.MethodPut, token: token, wantCode: http.StatusOK,
			body: marchallObj(t, map[string]string{"name": "Sammy"})},
		{name: "cannot self-promote", method: http.MethodPut, token: token, wantCode: http.StatusForbidden,
			body:     marchallObj(t, map[string]string{"role": "admin"}),
			wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "password change requires current", method: http.MethodPut, token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, map[string]string{"current_password": "nope", "password": "newS3cret!pwd", "password_confirm": "newS3cret!pwd"}),
			wantData: marchallObj(t, map[string]string{"current_password": "invalid password"})},
		{name: "password change ok", method: http.MethodPut, token: token, wantCode: http.StatusOK,
			body: marchallObj(t, map[string]string{"current_password": "S3cret!pwd", "password": "newS3cret!pwd", "password_confirm": "newS3cret!pwd"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, "/v1/users/me", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	refreshed, err := env.usrSvc.GetByID(context.Background(), usr.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Sammy", refreshed.Name)
	assert.NoError(t, refreshed.CheckPassword("newS3cret!pwd"))
}

func Test_userApi_admin(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Root", "root@test.test", "S3cret!pwd", user.RoleAdmin)
	sam := env.createUser(t, "Sam", "sam@test.test", "S3cret!pwd", user.RoleStudent)
	adminToken := getToken(t, admin)
	samToken := getToken(t, sam)

	tests := []httpTest{
		{name: "list: no token", method: http.MethodGet, path: "/v1/users", wantCode: http.StatusUnauthorized},
		{name: "list: student forbidden", method: http.MethodGet, path: "/v1/users", token: samToken, wantCode: http.StatusForbidden},
		{name: "list: admin ok", method: http.MethodGet, path: "/v1/users", token: adminToken, wantCode: http.StatusOK},
		{name: "set role: student forbidden", method: http.MethodPut, path: "/v1/users/" + sam.ID + "/role", token: samToken,
			body: marchallObj(t, map[string]string{"role": "teacher"}), wantCode: http.StatusForbidden},
		{name: "set role: unknown role", method: http.MethodPut, path: "/v1/users/" + sam.ID + "/role", token: adminToken,
			body: marchallObj(t, map[string]string{"role": "emperor"}), wantCode: http.StatusBadRequest},
		{name: "set role: unknown user", method: http.MethodPut, path: "/v1/users/11111111-1111-1111-1111-111111111111/role", token: adminToken,
			body: marchallObj(t, map[string]string{"role": "teacher"}), wantCode: http.StatusNotFound},
		{name: "set role: ok", method: http.MethodPut, path: "/v1/users/" + sam.ID + "/role", token: adminToken,
			body: marchallObj(t, map[string]string{"role": "teacher"}), wantCode: http.StatusOK},
		{name: "delete: cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete: ok", method: http.MethodDelete, path: "/v1/users/" + sam.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete: gone", method: http.MethodDelete, path: "/v1/users/" + sam.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the promoted role sticks until sam was deleted; admin remains
	users, err := env.usrSvc.QueryAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, admin.ID, users[0].ID)
}
