package main

import (
	"context"
	"time"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/user"
)

// createSuperuser updates or creates an admin account.
func (cli *commandLine) createSuperuser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	usr.Role = user.RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
