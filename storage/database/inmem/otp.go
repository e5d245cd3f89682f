package inmemdb

import (
	"context"
	"time"

	"github.com/mastersgang/backend/core/otp"
)

type codeRepository struct {
	db *DB
}

var _ otp.Repository = (*codeRepository)(nil)

func NewCodeRepository(db *DB) *codeRepository {
	return &codeRepository{db: db}
}

func (repo *codeRepository) CreateCode(_ context.Context, code otp.Code) (otp.Code, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.codes[code.Email] = &code
	return code, nil
}

func (repo *codeRepository) GetCodeByEmail(_ context.Context, email string) (otp.Code, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if code, ok := repo.db.codes[email]; ok {
		return *code, nil
	}
	return otp.Code{}, otp.ErrNotFound
}

func (repo *codeRepository) DeleteCodesByEmail(_ context.Context, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.codes, email)
	return nil
}

func (repo *codeRepository) DeleteCodesCreatedBefore(_ context.Context, t time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for email, code := range repo.db.codes {
		if code.CreatedAt.Before(t) {
			delete(repo.db.codes, email)
			n++
		}
	}
	return n, nil
}
