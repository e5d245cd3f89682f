package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = errors.New("verification code not found")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrCodeExpired = errors.New("verification code expired")
)

// Code is a registration verification code. At most one live Code exists
// per email; issuing a new one discards any previous one.
type Code struct {
	ID        string
	Email     string
	Code      string
	CreatedAt time.Time // UTC
}

func (c Code) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.After(c.CreatedAt.Add(ttl))
}

type (
	Repository interface {
		CreateCode(ctx context.Context, code Code) (Code, error)
		GetCodeByEmail(ctx context.Context, email string) (Code, error)
		DeleteCodesByEmail(ctx context.Context, email string) error
		DeleteCodesCreatedBefore(ctx context.Context, t time.Time) (int, error)
	}

	Issuer struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewIssuer(conf *core.Config, repo Repository, mailSvc core.EmailService) *Issuer {
	return &Issuer{conf: conf, repo: repo, mailSvc: mailSvc}
}

// Generate returns a 6-digit numeric code drawn uniformly from [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(err, "generating code")
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue generates a verification code for email, delivers it and persists it.
// Any previously issued code for email is discarded first. Nothing is
// persisted unless delivery succeeds, so a stored code is always one that
// reached its recipient.
func (iss *Issuer) Issue(ctx context.Context, email string) (Code, error) {
	if err := iss.repo.DeleteCodesByEmail(ctx, email); err != nil {
		return Code{}, errors.Wrap(err, "discarding previous codes")
	}

	code, err := Generate()
	if err != nil {
		return Code{}, err
	}

	msg := &core.EmailMessage{
		To:          []mail.Address{{Address: email}},
		Subject:     "OTP for " + iss.conf.AppName,
		TextContent: fmt.Sprintf("Your OTP is %s", code),
		HTMLContent: fmt.Sprintf("<p>Your OTP is <strong>%s</strong></p>", code),
	}
	if err := iss.mailSvc.SendMessage(msg); err != nil {
		return Code{}, errors.Wrap(err, "delivering verification code")
	}

	rec := Code{
		ID:        uuid.New().String(),
		Email:     email,
		Code:      code,
		CreatedAt: NowFunc().UTC(),
	}
	rec, err = iss.repo.CreateCode(ctx, rec)
	return rec, errors.Wrap(err, "persisting verification code")
}

// Verify matches the live code for email against the supplied code.
// Expired records are purged on sight even if the sweeper has not caught
// them yet.
func (iss *Issuer) Verify(ctx context.Context, email, code string) error {
	rec, err := iss.repo.GetCodeByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidCode
		}
		return errors.Wrap(err, "finding verification code")
	}
	if rec.Expired(iss.conf.OTP.TTL, NowFunc().UTC()) {
		_ = iss.repo.DeleteCodesByEmail(ctx, email)
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 0 {
		return ErrInvalidCode
	}
	return nil
}

// Consume discards the live code for email once it has served its purpose.
func (iss *Issuer) Consume(ctx context.Context, email string) error {
	return errors.Wrap(iss.repo.DeleteCodesByEmail(ctx, email), "consuming verification code")
}

// Sweep purges expired registration codes. The store has no native TTL
// so this reproduces it; match-time expiry checks in Verify cover the
// window between sweeps.
func (iss *Issuer) Sweep(ctx context.Context) (int, error) {
	if iss.conf.OTP.TTL <= 0 {
		return 0, nil
	}
	n, err := iss.repo.DeleteCodesCreatedBefore(ctx, NowFunc().UTC().Add(-iss.conf.OTP.TTL))
	return n, errors.Wrap(err, "sweeping expired codes")
}

// RunSweeper periodically purges expired codes until ctx is cancelled.
func (iss *Issuer) RunSweeper(ctx context.Context, logger core.Logger) {
	interval := iss.conf.OTP.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := iss.Sweep(ctx); err != nil {
				logger.Error(fmt.Sprintf("sweeping expired codes: %v", err), err)
			} else if n > 0 {
				logger.Debug(fmt.Sprintf("swept %d expired verification code(s)", n))
			}
		}
	}
}
