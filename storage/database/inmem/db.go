package inmemdb

import (
	"sync"

	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
)

// DB is an in-memory stand-in for the real store, used by tests.
type DB struct {
	mutex sync.RWMutex

	users        map[string]*user.User           // by id
	codes        map[string]*otp.Code            // by email; single-liveness
	classrooms   map[string]*classroom.Classroom // by id
	members      map[string]map[string]bool      // classroom id -> email set
	posts        map[string][]classroom.Post     // classroom id -> posts
	joinRequests map[string]*classroom.JoinRequest
}

func Open() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		codes:        make(map[string]*otp.Code),
		classrooms:   make(map[string]*classroom.Classroom),
		members:      make(map[string]map[string]bool),
		posts:        make(map[string][]classroom.Post),
		joinRequests: make(map[string]*classroom.JoinRequest),
	}
}
