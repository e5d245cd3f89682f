package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core/otp"
)

type codeRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
}

func (r codeRow) toCode() otp.Code {
	return otp.Code(r)
}

type codeRepository struct {
	db *sqlx.DB
}

var _ otp.Repository = (*codeRepository)(nil) // interface compliance check

func NewCodeRepository(db *sqlx.DB) *codeRepository {
	return &codeRepository{db: db}
}

func (repo codeRepository) CreateCode(ctx context.Context, code otp.Code) (otp.Code, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO verification_codes (id, email, code, created_at)
		VALUES (:id, :email, :code, :created_at)`,
		codeRow(code),
	)
	if err != nil {
		return otp.Code{}, errors.Wrap(err, "inserting verification code")
	}
	return code, nil
}

func (repo codeRepository) GetCodeByEmail(ctx context.Context, email string) (otp.Code, error) {
	var row codeRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM verification_codes WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return otp.Code{}, otp.ErrNotFound
		}
		return otp.Code{}, errors.Wrap(err, "selecting verification code")
	}
	return row.toCode(), nil
}

func (repo codeRepository) DeleteCodesByEmail(ctx context.Context, email string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, email)
	return errors.Wrap(err, "deleting verification codes")
}

func (repo codeRepository) DeleteCodesCreatedBefore(ctx context.Context, t time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE created_at < $1`, t)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired verification codes")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
