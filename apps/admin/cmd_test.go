package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	inmemdb "github.com/mastersgang/backend/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	issuer := otp.NewIssuer(&core.Config{}, inmemdb.NewCodeRepository(db), emailsvc.NewDummyService())
	return &commandLine{
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, issuer),
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no email", args: []string{"adduser", "-name", "Jane"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Jane", "-email", "jane@test.cd"}, wantErr: errHelp},
		{name: "add teacher", args: []string{"adduser", "-name", "Jane", "-email", "jane@test.cd"}, pwd: "s3cret!"},
		{name: "add student", args: []string{"adduser", "-name", "Hero", "-email", "hero@test.cd", "-role", "student"}, pwd: "s3cret!"},
		{name: "duplicate email", args: []string{"adduser", "-name", "Jane2", "-email", "jane@test.cd"}, pwd: "s3cret!", wantErr: user.ErrEmailExists},
		{name: "unknown role", args: []string{"adduser", "-name", "Jane2", "-email", "jane2@test.cd", "-role", "admin"}, pwd: "s3cret!", wantErr: nil},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "unknown role":
				if err == nil {
					t.Error("cli.run() expected an error for an unknown role")
				}
			case "add teacher", "add student":
				if err != nil {
					t.Fatalf("cli.run() unexpected error = %v", err)
				}
				email := tt.args[4]
				usr, err := usrRepo.GetUserByEmail(context.Background(), email)
				if err != nil {
					t.Fatalf("GetUserByEmail() failed, %v", err)
				}
				if err := usr.CheckPassword(tt.pwd); err != nil {
					t.Error("stored password hash does not match the prompt")
				}
			default:
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret!"), nil }
	if err := cli.run([]string{"admin", "adduser", "-name", "Jane", "-email", "jane@test.cd"}); err != nil {
		t.Fatalf("adduser failed, %v", err)
	}
	usr, err := usrRepo.GetUserByEmail(context.Background(), "jane@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed, %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "jane@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "jane@test.cd"}, pwd: "n3w-pass"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := usrRepo.GetUserByEmail(context.Background(), usr.Email)
				if err != nil {
					t.Fatalf("GetUserByEmail() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
