package classroom_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	inmemdb "github.com/mastersgang/backend/storage/database/inmem"
)

func createUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, usr.SetPassword("s3cret!"))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func Test_service_join_flow(t *testing.T) {
	ctx := context.Background()
	conf := &core.Config{Server: core.ServerConfig{RequireOwnerApproval: true}}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassroomRepository(db)
	mailSvc := emailsvc.NewDummyService()
	svc := classroom.NewService(conf, clsRepo, usrRepo, mailSvc)

	owner := createUser(t, usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)
	stranger := createUser(t, usrRepo, "Other", "other@test.cd", user.RoleTeacher)
	cls, err := svc.Create(ctx, owner.ID, classroom.NewClassroom{Name: "Algebra 101"})
	require.NoError(t, err)

	req, ownerEmail, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
		ClassroomID:  cls.ID,
		StudentEmail: "student@test.cd",
	})
	require.NoError(t, err)
	assert.Equal(t, owner.Email, ownerEmail)
	assert.Equal(t, classroom.JoinStatusPending, req.Status)
	assert.NotEmpty(t, req.OTP)

	// the code goes to the owner, not the student
	msg, ok := mailSvc.LastMessage()
	require.True(t, ok)
	assert.Equal(t, owner.Email, msg.To[0].Address)
	assert.Contains(t, msg.TextContent, req.OTP)

	vj := classroom.VerifyJoin{ClassroomID: cls.ID, StudentEmail: "student@test.cd", OTP: req.OTP}

	t.Run("wrong code leaves membership unchanged", func(t *testing.T) {
		bad := vj
		bad.OTP = "000000"
		assert.Equal(t, classroom.ErrInvalidOTP, errors.Cause(svc.ApproveJoin(ctx, owner, bad)))

		got, err := svc.GetByID(ctx, cls.ID)
		require.NoError(t, err)
		assert.False(t, got.HasMember("student@test.cd"))
		assert.Equal(t, 1, clsRepo.JoinRequestCount())
	})

	t.Run("only the owner can approve", func(t *testing.T) {
		assert.Equal(t, classroom.ErrNotOwner, errors.Cause(svc.ApproveJoin(ctx, stranger, vj)))
		assert.Equal(t, 1, clsRepo.JoinRequestCount())
	})

	t.Run("approval adds the member and consumes the request", func(t *testing.T) {
		require.NoError(t, svc.ApproveJoin(ctx, owner, vj))

		got, err := svc.GetByID(ctx, cls.ID)
		require.NoError(t, err)
		assert.True(t, got.HasMember("student@test.cd"))
		assert.Equal(t, 0, clsRepo.JoinRequestCount())
	})

	t.Run("a consumed code cannot be replayed", func(t *testing.T) {
		assert.Equal(t, classroom.ErrInvalidOTP, errors.Cause(svc.ApproveJoin(ctx, owner, vj)))
	})

	t.Run("re-joining an existing member is a no-op", func(t *testing.T) {
		req2, _, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
			ClassroomID:  cls.ID,
			StudentEmail: "student@test.cd",
		})
		require.NoError(t, err)
		require.NoError(t, svc.ApproveJoin(ctx, owner, classroom.VerifyJoin{
			ClassroomID: cls.ID, StudentEmail: "student@test.cd", OTP: req2.OTP,
		}))

		got, err := svc.GetByID(ctx, cls.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"student@test.cd"}, got.Members)
	})
}

func Test_service_RequestToJoin_errors(t *testing.T) {
	ctx := context.Background()
	conf := &core.Config{Server: core.ServerConfig{RequireOwnerApproval: true}}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassroomRepository(db)
	mailSvc := emailsvc.NewDummyService()
	svc := classroom.NewService(conf, clsRepo, usrRepo, mailSvc)

	owner := createUser(t, usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)
	cls, err := svc.Create(ctx, owner.ID, classroom.NewClassroom{Name: "Algebra 101"})
	require.NoError(t, err)

	t.Run("unknown classroom", func(t *testing.T) {
		_, _, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
			ClassroomID:  "nope",
			StudentEmail: "student@test.cd",
		})
		assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
	})

	t.Run("unresolvable owner", func(t *testing.T) {
		orphan, err := clsRepo.CreateClassroom(ctx, classroom.Classroom{
			ID:      uuid.New().String(),
			Name:    "Orphaned",
			OwnerID: "gone",
		})
		require.NoError(t, err)

		_, _, err = svc.RequestToJoin(ctx, classroom.JoinClassroom{
			ClassroomID:  orphan.ID,
			StudentEmail: "student@test.cd",
		})
		assert.Equal(t, classroom.ErrOwnerEmailMissing, errors.Cause(err))
	})

	t.Run("no ledger row on delivery failure", func(t *testing.T) {
		mailSvc.FailSend = true
		defer func() { mailSvc.FailSend = false }()

		_, _, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
			ClassroomID:  cls.ID,
			StudentEmail: "student@test.cd",
		})
		require.Error(t, err)
		assert.Equal(t, core.ErrMailNotSent, errors.Cause(err))
		assert.Equal(t, 0, clsRepo.JoinRequestCount())
	})

	t.Run("resubmission keeps earlier pending rows", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, _, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
				ClassroomID:  cls.ID,
				StudentEmail: "student@test.cd",
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, clsRepo.JoinRequestCount())
	})
}

func Test_service_ApproveJoin_permissive(t *testing.T) {
	ctx := context.Background()
	conf := &core.Config{Server: core.ServerConfig{RequireOwnerApproval: false}}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassroomRepository(db)
	svc := classroom.NewService(conf, clsRepo, usrRepo, emailsvc.NewDummyService())

	owner := createUser(t, usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)
	stranger := createUser(t, usrRepo, "Other", "other@test.cd", user.RoleStudent)
	cls, err := svc.Create(ctx, owner.ID, classroom.NewClassroom{Name: "Algebra 101"})
	require.NoError(t, err)

	req, _, err := svc.RequestToJoin(ctx, classroom.JoinClassroom{
		ClassroomID:  cls.ID,
		StudentEmail: "student@test.cd",
	})
	require.NoError(t, err)

	// with owner approval off, any authenticated caller holding the code passes
	require.NoError(t, svc.ApproveJoin(ctx, stranger, classroom.VerifyJoin{
		ClassroomID: cls.ID, StudentEmail: "student@test.cd", OTP: req.OTP,
	}))

	got, err := svc.GetByID(ctx, cls.ID)
	require.NoError(t, err)
	assert.True(t, got.HasMember("student@test.cd"))
}
