package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core/classroom"
)

const fkViolation = "23503"

type classroomRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	OwnerID     string    `db:"owner_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r classroomRow) toClassroom() classroom.Classroom {
	return classroom.Classroom{
		ID:          r.ID,
		Name:        r.Name,
		OwnerID:     r.OwnerID,
		Description: r.Description,
		Members:     []string{},
		Posts:       []classroom.Post{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type postRow struct {
	ID          string    `db:"id"`
	ClassroomID string    `db:"classroom_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r postRow) toPost() classroom.Post {
	return classroom.Post(r)
}

type joinRequestRow struct {
	ID           string    `db:"id"`
	ClassroomID  string    `db:"classroom_id"`
	OwnerID      string    `db:"classroom_owner"`
	StudentEmail string    `db:"student_email"`
	OTP          string    `db:"otp"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r joinRequestRow) toJoinRequest() classroom.JoinRequest {
	return classroom.JoinRequest(r)
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO classrooms (id, name, owner_id, description, created_at, updated_at)
		VALUES (:id, :name, :owner_id, :description, :created_at, :updated_at)`,
		classroomRow{
			ID:          cls.ID,
			Name:        cls.Name,
			OwnerID:     cls.OwnerID,
			Description: cls.Description,
			CreatedAt:   cls.CreatedAt.UTC(),
			UpdatedAt:   cls.UpdatedAt.UTC(),
		},
	)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id string) (classroom.Classroom, error) {
	var row classroomRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM classrooms WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Classroom{}, classroom.ErrNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "selecting classroom by id")
	}

	cls := row.toClassroom()
	if cls.Members, err = repo.queryMembers(ctx, id); err != nil {
		return classroom.Classroom{}, err
	}
	if cls.Posts, err = repo.queryPosts(ctx, id); err != nil {
		return classroom.Classroom{}, err
	}
	return cls, nil
}

func (repo classroomRepository) QueryClassroomsByOwner(ctx context.Context, ownerID string) ([]classroom.Classroom, error) {
	return repo.queryClassrooms(ctx, `SELECT * FROM classrooms WHERE owner_id = $1 ORDER BY created_at`, ownerID)
}

func (repo classroomRepository) QueryClassroomsByMember(ctx context.Context, email string) ([]classroom.Classroom, error) {
	return repo.queryClassrooms(ctx, `
		SELECT c.* FROM classrooms c
		JOIN classroom_members m ON m.classroom_id = c.id
		WHERE m.email = $1
		ORDER BY c.created_at`, email)
}

func (repo classroomRepository) SearchClassroomsByName(ctx context.Context, term string) ([]classroom.Classroom, error) {
	return repo.queryClassrooms(ctx, `
		SELECT * FROM classrooms WHERE name ILIKE '%' || $1 || '%' ORDER BY created_at`, term)
}

func (repo classroomRepository) queryClassrooms(ctx context.Context, query string, args ...interface{}) ([]classroom.Classroom, error) {
	var rows []classroomRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting classrooms")
	}

	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, row := range rows {
		cls := row.toClassroom()
		members, err := repo.queryMembers(ctx, cls.ID)
		if err != nil {
			return nil, err
		}
		cls.Members = members
		classrooms = append(classrooms, cls)
	}
	return classrooms, nil
}

func (repo classroomRepository) queryMembers(ctx context.Context, classroomID string) ([]string, error) {
	members := []string{}
	err := repo.db.SelectContext(ctx, &members, `
		SELECT email FROM classroom_members WHERE classroom_id = $1 ORDER BY email`, classroomID)
	return members, errors.Wrap(err, "selecting classroom members")
}

func (repo classroomRepository) queryPosts(ctx context.Context, classroomID string) ([]classroom.Post, error) {
	var rows []postRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM posts WHERE classroom_id = $1 ORDER BY created_at`, classroomID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting classroom posts")
	}

	posts := make([]classroom.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}
	return posts, nil
}

// AddClassroomMember is a single atomic set-union: ON CONFLICT DO NOTHING
// makes re-adding an existing member a no-op, and concurrent adds for
// different students cannot corrupt the set.
func (repo classroomRepository) AddClassroomMember(ctx context.Context, id, email string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO classroom_members (classroom_id, email)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, id, email)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == fkViolation {
			return classroom.ErrNotFound
		}
		return errors.Wrap(err, "inserting classroom member")
	}
	return nil
}

func (repo classroomRepository) CreatePost(ctx context.Context, post classroom.Post) (classroom.Post, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO posts (id, classroom_id, title, description, created_by, created_at)
		VALUES (:id, :classroom_id, :title, :description, :created_by, :created_at)`,
		postRow(post),
	)
	if err != nil {
		return classroom.Post{}, errors.Wrap(err, "inserting post")
	}
	return post, nil
}

func (repo classroomRepository) CreateJoinRequest(ctx context.Context, req classroom.JoinRequest) (classroom.JoinRequest, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO join_requests (id, classroom_id, classroom_owner, student_email, otp, status, created_at)
		VALUES (:id, :classroom_id, :classroom_owner, :student_email, :otp, :status, :created_at)`,
		joinRequestRow(req),
	)
	if err != nil {
		return classroom.JoinRequest{}, errors.Wrap(err, "inserting join request")
	}
	return req, nil
}

// ConsumeJoinRequest deletes and returns the row matching the exact triple
// in one statement, so two concurrent verifications of the same code cannot
// both win.
func (repo classroomRepository) ConsumeJoinRequest(ctx context.Context, classroomID, studentEmail, code string) (classroom.JoinRequest, error) {
	var row joinRequestRow
	err := repo.db.GetContext(ctx, &row, `
		DELETE FROM join_requests
		WHERE classroom_id = $1 AND student_email = $2 AND otp = $3
		RETURNING *`, classroomID, studentEmail, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.JoinRequest{}, classroom.ErrInvalidOTP
		}
		return classroom.JoinRequest{}, errors.Wrap(err, "consuming join request")
	}
	return row.toJoinRequest(), nil
}
