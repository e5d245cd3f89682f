package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/mastersgang/backend/core/classroom"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

// compose returns a copy of cls with its member set and posts filled in.
// Callers must hold at least a read lock.
func (repo *classroomRepository) compose(cls classroom.Classroom) classroom.Classroom {
	members := make([]string, 0, len(repo.db.members[cls.ID]))
	for email := range repo.db.members[cls.ID] {
		members = append(members, email)
	}
	sort.Strings(members)
	cls.Members = members

	cls.Posts = append([]classroom.Post{}, repo.db.posts[cls.ID]...)
	return cls
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.classrooms[cls.ID] = &cls
	repo.db.members[cls.ID] = make(map[string]bool)
	return cls, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string) (classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classrooms[id]; ok {
		return repo.compose(*cls), nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryClassroomsByOwner(_ context.Context, ownerID string) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classrooms := make([]classroom.Classroom, 0)
	for _, cls := range repo.db.classrooms {
		if cls.OwnerID == ownerID {
			classrooms = append(classrooms, repo.compose(*cls))
		}
	}
	return classrooms, nil
}

func (repo *classroomRepository) QueryClassroomsByMember(_ context.Context, email string) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classrooms := make([]classroom.Classroom, 0)
	for id, cls := range repo.db.classrooms {
		if repo.db.members[id][email] {
			classrooms = append(classrooms, repo.compose(*cls))
		}
	}
	return classrooms, nil
}

func (repo *classroomRepository) SearchClassroomsByName(_ context.Context, term string) ([]classroom.Classroom, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	term = strings.ToLower(term)
	classrooms := make([]classroom.Classroom, 0)
	for _, cls := range repo.db.classrooms {
		if strings.Contains(strings.ToLower(cls.Name), term) {
			classrooms = append(classrooms, repo.compose(*cls))
		}
	}
	return classrooms, nil
}

func (repo *classroomRepository) AddClassroomMember(_ context.Context, id, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classrooms[id]; !ok {
		return classroom.ErrNotFound
	}
	repo.db.members[id][email] = true // idempotent set-add
	return nil
}

func (repo *classroomRepository) CreatePost(_ context.Context, post classroom.Post) (classroom.Post, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.classrooms[post.ClassroomID]; !ok {
		return classroom.Post{}, classroom.ErrNotFound
	}
	repo.db.posts[post.ClassroomID] = append(repo.db.posts[post.ClassroomID], post)
	return post, nil
}

func (repo *classroomRepository) CreateJoinRequest(_ context.Context, req classroom.JoinRequest) (classroom.JoinRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.joinRequests[req.ID] = &req
	return req, nil
}

func (repo *classroomRepository) ConsumeJoinRequest(_ context.Context, classroomID, studentEmail, code string) (classroom.JoinRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, req := range repo.db.joinRequests {
		if req.ClassroomID == classroomID && req.StudentEmail == studentEmail && req.OTP == code {
			delete(repo.db.joinRequests, id)
			return *req, nil
		}
	}
	return classroom.JoinRequest{}, classroom.ErrInvalidOTP
}

// JoinRequestCount reports pending ledger rows; test helper.
func (repo *classroomRepository) JoinRequestCount() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.joinRequests)
}
