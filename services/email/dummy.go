package emailsvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
)

// DummyService records messages for tests instead of delivering them.
// Set FailSend to simulate a transport outage.
type DummyService struct {
	mu       sync.Mutex
	sent     []core.EmailMessage
	FailSend bool
}

var _ core.EmailService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{}
}

func (svc *DummyService) SendMessage(msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.FailSend {
		return errors.Wrap(core.ErrMailNotSent, "dummy transport down")
	}
	svc.sent = append(svc.sent, *msg)
	return nil
}

func (svc *DummyService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	msgs := make([]core.EmailMessage, len(svc.sent))
	copy(msgs, svc.sent)
	return msgs
}

func (svc *DummyService) LastMessage() (core.EmailMessage, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.sent) == 0 {
		return core.EmailMessage{}, false
	}
	return svc.sent[len(svc.sent)-1], true
}

func (svc *DummyService) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
}
