package classroom

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("classroom not found")
	// ErrOwnerEmailMissing flags a classroom whose owner reference cannot be
	// resolved to a mailable address.
	ErrOwnerEmailMissing = errors.New("classroom owner email not found")
	// ErrInvalidOTP covers both a wrong code and a missing pending request;
	// callers cannot tell the two apart.
	ErrInvalidOTP = errors.New("invalid OTP or request")
	ErrNotOwner   = errors.New("only the classroom owner can approve join requests")
)

type (
	Repository interface {
		CreateClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		GetClassroomByID(ctx context.Context, id string) (Classroom, error)
		QueryClassroomsByOwner(ctx context.Context, ownerID string) ([]Classroom, error)
		QueryClassroomsByMember(ctx context.Context, email string) ([]Classroom, error)
		// SearchClassroomsByName does a case-insensitive substring match.
		SearchClassroomsByName(ctx context.Context, term string) ([]Classroom, error)
		// AddClassroomMember adds email to the classroom's member set as a
		// single atomic set-union; re-adding an existing member is a no-op.
		AddClassroomMember(ctx context.Context, id, email string) error
		CreatePost(ctx context.Context, post Post) (Post, error)
		CreateJoinRequest(ctx context.Context, req JoinRequest) (JoinRequest, error)
		// ConsumeJoinRequest atomically deletes the ledger row matching the
		// exact triple and returns it; ErrInvalidOTP if there is no match.
		ConsumeJoinRequest(ctx context.Context, classroomID, studentEmail, code string) (JoinRequest, error)
	}

	Service interface {
		Create(ctx context.Context, ownerID string, nc NewClassroom) (Classroom, error)
		GetByID(ctx context.Context, id string) (Classroom, error)
		QueryByOwner(ctx context.Context, ownerID string) ([]Classroom, error)
		QueryByMember(ctx context.Context, email string) ([]Classroom, error)
		Search(ctx context.Context, term string) ([]Classroom, error)
		AddPost(ctx context.Context, authorID string, np NewPost) (Post, error)
		RequestToJoin(ctx context.Context, jc JoinClassroom) (JoinRequest, string, error)
		ApproveJoin(ctx context.Context, caller user.User, vj VerifyJoin) error
	}

	service struct {
		conf    *core.Config
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, usrRepo user.Repository, mailSvc core.EmailService) Service {
	return &service{conf: conf, repo: repo, usrRepo: usrRepo, mailSvc: mailSvc}
}

func (svc *service) Create(ctx context.Context, ownerID string, nc NewClassroom) (Classroom, error) {
	now := time.Now().UTC()
	cls := Classroom{
		ID:          uuid.New().String(),
		Name:        nc.Name,
		OwnerID:     ownerID,
		Description: nc.Description,
		Members:     []string{},
		Posts:       []Post{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cls, err := svc.repo.CreateClassroom(ctx, cls)
	return cls, errors.Wrap(err, "creating classroom")
}

func (svc *service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *service) QueryByOwner(ctx context.Context, ownerID string) ([]Classroom, error) {
	return svc.repo.QueryClassroomsByOwner(ctx, ownerID)
}

func (svc *service) QueryByMember(ctx context.Context, email string) ([]Classroom, error) {
	return svc.repo.QueryClassroomsByMember(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Search(ctx context.Context, term string) ([]Classroom, error) {
	return svc.repo.SearchClassroomsByName(ctx, core.CleanString(term))
}

func (svc *service) AddPost(ctx context.Context, authorID string, np NewPost) (Post, error) {
	if _, err := svc.repo.GetClassroomByID(ctx, np.ClassroomID); err != nil {
		return Post{}, err
	}
	post := Post{
		ID:          uuid.New().String(),
		ClassroomID: np.ClassroomID,
		Title:       np.Title,
		Description: np.Description,
		CreatedBy:   authorID,
		CreatedAt:   time.Now().UTC(),
	}
	post, err := svc.repo.CreatePost(ctx, post)
	return post, errors.Wrap(err, "creating post")
}
