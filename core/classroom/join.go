package classroom

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
)

// RequestToJoin starts the join workflow: it mails a one-time code to the
// classroom owner (the approval authority, not the student) and appends a
// pending row to the join-request ledger. The row is only persisted once
// delivery succeeds. It returns the new request and the owner's email.
//
// A resubmission issues a fresh code without touching earlier pending rows
// for the same student; stale rows accumulate until consumed.
func (svc *service) RequestToJoin(ctx context.Context, jc JoinClassroom) (JoinRequest, string, error) {
	cls, err := svc.repo.GetClassroomByID(ctx, jc.ClassroomID)
	if err != nil {
		return JoinRequest{}, "", err
	}

	owner, err := svc.usrRepo.GetUserByID(ctx, cls.OwnerID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return JoinRequest{}, "", ErrOwnerEmailMissing
		}
		return JoinRequest{}, "", errors.Wrap(err, "resolving classroom owner")
	}
	if owner.Email == "" {
		return JoinRequest{}, "", ErrOwnerEmailMissing
	}

	code, err := otp.Generate()
	if err != nil {
		return JoinRequest{}, "", err
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: "Classroom Join Request OTP",
		TextContent: fmt.Sprintf(
			"A student has requested to join your classroom. OTP : %s", code),
		HTMLContent: fmt.Sprintf(
			"<p>A student has requested to join your classroom.</p><p><strong>OTP: %s</strong></p>", code),
	}
	if err := svc.mailSvc.SendMessage(msg); err != nil {
		return JoinRequest{}, "", errors.Wrap(err, "delivering join code")
	}

	req := JoinRequest{
		ID:           uuid.New().String(),
		ClassroomID:  cls.ID,
		OwnerID:      cls.OwnerID,
		StudentEmail: jc.StudentEmail,
		OTP:          code,
		Status:       JoinStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	req, err = svc.repo.CreateJoinRequest(ctx, req)
	if err != nil {
		return JoinRequest{}, "", errors.Wrap(err, "persisting join request")
	}
	return req, owner.Email, nil
}

// ApproveJoin completes the join workflow. The ledger row matching the
// exact (classroom, student email, code) triple is consumed first with a
// compare-and-delete, so a given code can only ever be applied once even
// under concurrent calls; membership is then granted with an idempotent
// set-union. If the process dies between the two steps the student simply
// requests a fresh code.
func (svc *service) ApproveJoin(ctx context.Context, caller user.User, vj VerifyJoin) error {
	if svc.conf.Server.RequireOwnerApproval {
		cls, err := svc.repo.GetClassroomByID(ctx, vj.ClassroomID)
		if err != nil {
			return err
		}
		if cls.OwnerID != caller.ID {
			return ErrNotOwner
		}
	}

	if _, err := svc.repo.ConsumeJoinRequest(ctx, vj.ClassroomID, vj.StudentEmail, vj.OTP); err != nil {
		return err
	}

	return svc.repo.AddClassroomMember(ctx, vj.ClassroomID, vj.StudentEmail)
}
