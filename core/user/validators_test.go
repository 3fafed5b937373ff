package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/eduvault/eduvault/core"
)

func newTestValidator(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, found := uni.GetTranslator("en")
	if !found {
		t.Fatal("english translator not found")
	}
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func getFailedTags(err error) []string {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		tags = append(tags, vErr.Tag())
	}
	return tags
}

func Test_validatePassword(t *testing.T) {
	validate := newTestValidator(t)

	tests := []struct {
		name    string
		pwd     string
		usrName string
		email   string
		wantTag string
	}{
		{name: "too short", pwd: "Sh0rt!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "S3cret pwd!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no uppercase", pwd: "s3cret!pwd", wantTag: pwdComplexityTag},
		{name: "no digit", pwd: "Secret!pwd", wantTag: pwdComplexityTag},
		{name: "no special char", pwd: "S3cretpwd", wantTag: pwdComplexityTag},
		{name: "similar to email", pwd: "S3cret@pwd.dev", email: "s3cret@pwd.dev", wantTag: pwdAttrSimTag},
		{name: "similar to name", pwd: "J0hn-Smithers!", usrName: "J0hn-Smithers", wantTag: pwdAttrSimTag},
		{name: "common password", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "ok", pwd: "S3cret!pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.usrName
			if name == "" {
				name = "Test User"
			}
			email := tt.email
			if email == "" {
				email = "testuser@test.test"
			}
			nu := NewUser{
				Name:            name,
				Email:           email,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}

			err := validate.Struct(nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Struct() err = %v; want nil", err)
				}
				return
			}
			tags := getFailedTags(err)
			if len(tags) != 1 || tags[0] != tt.wantTag {
				t.Errorf("Struct() failed tags = %v; want [%v]", tags, tt.wantTag)
			}
		})
	}
}

func Test_roleValidations(t *testing.T) {
	validate := newTestValidator(t)

	t.Run("signup roles exclude admin", func(t *testing.T) {
		for role, wantTag := range map[string]string{
			RoleStudent: "",
			RoleTeacher: "",
			RoleAdmin:   signupRoleTag,
			"emperor":   signupRoleTag,
		} {
			nu := NewUser{
				Name:            "Test User",
				Email:           "testuser@test.test",
				Password:        "S3cret!pwd",
				PasswordConfirm: "S3cret!pwd",
				Role:            role,
			}
			err := validate.Struct(nu)
			if wantTag == "" {
				if err != nil {
					t.Errorf("Struct(role=%q) err = %v; want nil", role, err)
				}
				continue
			}
			tags := getFailedTags(err)
			if len(tags) != 1 || tags[0] != wantTag {
				t.Errorf("Struct(role=%q) failed tags = %v; want [%v]", role, tags, wantTag)
			}
		}
	})

	t.Run("any role includes admin", func(t *testing.T) {
		for role, wantTag := range map[string]string{
			RoleStudent: "",
			RoleTeacher: "",
			RoleAdmin:   "",
			"emperor":   anyRoleTag,
		} {
			uu := UpdateUser{Role: role}
			err := validate.Struct(uu)
			if wantTag == "" {
				if err != nil {
					t.Errorf("Struct(role=%q) err = %v; want nil", role, err)
				}
				continue
			}
			tags := getFailedTags(err)
			if len(tags) != 1 || tags[0] != wantTag {
				t.Errorf("Struct(role=%q) failed tags = %v; want [%v]", role, tags, wantTag)
			}
		}
	})
}
