package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/otp"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUserPassword(ctx context.Context, id string, hash []byte) error
	}

	Service interface {
		IssueOTP(ctx context.Context, email string) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) error
	}

	service struct {
		repo   Repository
		issuer *otp.Issuer
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, issuer *otp.Issuer) Service {
	return &service{repo: repo, issuer: issuer}
}

// IssueOTP mails a fresh registration code to email. A previously issued
// code for the same email stops being valid.
func (svc *service) IssueOTP(ctx context.Context, email string) error {
	_, err := svc.issuer.Issue(ctx, core.CleanString(email, true /* lower */))
	return err
}

// Register creates an account once the registration code checks out.
// The consumed code is deleted so it can never authorize a second registration.
func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "checking email uniqueness")
	}

	if err := svc.issuer.Verify(ctx, nu.Email, nu.OTP); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if err := svc.issuer.Consume(ctx, nu.Email); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Authenticate resolves email+password to an account. Unknown email and
// wrong password are indistinguishable to the caller.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) error {
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.UpdateUserPassword(ctx, usr.ID, usr.PasswordHash), "updating password")
}
