package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/user"
)

// addUser creates an account directly, skipping the OTP flow; the admin
// vouches for the email instead.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()

	if role != user.RoleTeacher && role != user.RoleStudent {
		return errors.Errorf("unknown role %q", role)
	}

	email = core.CleanString(email, true /* lower */)
	if _, err := cli.usrRepo.GetUserByEmail(ctx, email); err == nil {
		return user.ErrEmailExists
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "checking email uniqueness")
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      core.CleanString(name, false),
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	usr, err := cli.usrRepo.CreateUser(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Printf("user %s (%s) created\n", usr.Email, usr.ID)
	return nil
}
