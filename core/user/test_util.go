package user

import (
	"context"

	"github.com/eduvault/eduvault/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose email side effects run synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	svc := NewService(repo, mailSvc, conf)
	return &serviceMock{service: *svc}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
