package classroom_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	inmemdb "github.com/mastersgang/backend/storage/database/inmem"
)

func Test_service_Create(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc := classroom.NewService(&core.Config{}, inmemdb.NewClassroomRepository(db), usrRepo, emailsvc.NewDummyService())

	owner := createUser(t, usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)
	cls, err := svc.Create(ctx, owner.ID, classroom.NewClassroom{Name: "Algebra 101", Description: "numbers"})
	require.NoError(t, err)
	assert.NotEmpty(t, cls.ID)
	assert.Equal(t, owner.ID, cls.OwnerID)
	assert.Empty(t, cls.Members)
	assert.Empty(t, cls.Posts)

	got, err := svc.GetByID(ctx, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, cls.Name, got.Name)

	_, err = svc.GetByID(ctx, "nope")
	assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
}

func Test_service_queries(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassroomRepository(db)
	svc := classroom.NewService(&core.Config{}, clsRepo, usrRepo, emailsvc.NewDummyService())

	jane := createUser(t, usrRepo, "Jane", "jane@test.cd", user.RoleTeacher)
	john := createUser(t, usrRepo, "John", "john@test.cd", user.RoleTeacher)

	algebra, err := svc.Create(ctx, jane.ID, classroom.NewClassroom{Name: "Algebra 101"})
	require.NoError(t, err)
	geometry, err := svc.Create(ctx, jane.ID, classroom.NewClassroom{Name: "Geometry"})
	require.NoError(t, err)
	poetry, err := svc.Create(ctx, john.ID, classroom.NewClassroom{Name: "Poetry"})
	require.NoError(t, err)

	require.NoError(t, clsRepo.AddClassroomMember(ctx, algebra.ID, "student@test.cd"))
	require.NoError(t, clsRepo.AddClassroomMember(ctx, poetry.ID, "student@test.cd"))

	t.Run("by owner", func(t *testing.T) {
		mine, err := svc.QueryByOwner(ctx, jane.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		none, err := svc.QueryByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("by member", func(t *testing.T) {
		joined, err := svc.QueryByMember(ctx, "Student@Test.CD") // cleaned + lowered
		require.NoError(t, err)
		assert.Len(t, joined, 2)

		none, err := svc.QueryByMember(ctx, "loner@test.cd")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("search is a case-insensitive substring match", func(t *testing.T) {
		found, err := svc.Search(ctx, "GEO")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, geometry.ID, found[0].ID)

		none, err := svc.Search(ctx, "chemistry")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func Test_service_AddPost(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc := classroom.NewService(&core.Config{}, inmemdb.NewClassroomRepository(db), usrRepo, emailsvc.NewDummyService())

	owner := createUser(t, usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)
	cls, err := svc.Create(ctx, owner.ID, classroom.NewClassroom{Name: "Algebra 101"})
	require.NoError(t, err)

	post, err := svc.AddPost(ctx, owner.ID, classroom.NewPost{
		ClassroomID: cls.ID,
		Title:       "Homework",
		Description: "page 12",
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, post.CreatedBy)

	got, err := svc.GetByID(ctx, cls.ID)
	require.NoError(t, err)
	require.Len(t, got.Posts, 1)
	assert.Equal(t, post.ID, got.Posts[0].ID)

	_, err = svc.AddPost(ctx, owner.ID, classroom.NewPost{ClassroomID: "nope", Title: "Homework"})
	assert.Equal(t, classroom.ErrNotFound, errors.Cause(err))
}
