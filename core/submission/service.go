package submission

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("submission not found")
	ErrCodeExhausted = errors.New("could not generate a unique submission code")
)

const codeMaxAttempts = 25

type (
	Repository interface {
		CreateSubmission(sub Submission) (Submission, error)
		GetSubmissionByCode(code string) (Submission, error)
		QueryEventSubmissions(eventSlug string) ([]Submission, error)
		// SaveSubmission persists the given fields and reports whether any
		// of them actually changed.
		SaveSubmission(sub Submission, fields ...string) (changed bool, err error)
		CodeExists(code string) (bool, error)
		AddSpeaker(code string, userID int) error
		GetSpeakers(code string) ([]user.User, error)

		QueryEventQuestions(eventSlug string) ([]Question, error)
		SaveAnswer(ans Answer) (Answer, error)
		QueryAnswers(code string) ([]Answer, error)
		// RemoveAnswers marks every answer of a submission as removed and
		// returns how many were affected.
		RemoveAnswers(code string) (int, error)

		QuerySubmissionTypes(eventSlug string) ([]SubmissionType, error)
		GetSubmissionType(id int) (SubmissionType, error)
		QueryTracks(eventSlug string) ([]Track, error)
		GetTrack(id int) (Track, error)
	}

	// SlotKeeper keeps the in-progress schedule consistent with submission
	// state changes.
	SlotKeeper interface {
		UpsertSlot(eventSlug, submissionCode string, visible bool) error
		DeleteSlots(eventSlug, submissionCode string) error
	}

	// ActionLogger records the audit trail. Fire-and-forget.
	ActionLogger interface {
		LogAction(action string, actorID int, data map[string]interface{})
	}

	Service struct {
		repo    Repository
		slots   SlotKeeper
		mailSvc core.EmailService
		audit   ActionLogger
		logger  core.Logger
	}
)

func NewService(repo Repository, slots SlotKeeper, mailSvc core.EmailService, audit ActionLogger, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		slots:   slots,
		mailSvc: mailSvc,
		audit:   audit,
		logger:  logger,
	}
}

// Create makes a new Submission in the submitted state and attaches the
// given speaker. The code is unique, immutable and human-typable.
func (svc *Service) Create(ns NewSubmission, speaker user.User) (Submission, error) {
	code, err := svc.generateCode()
	if err != nil {
		return Submission{}, err
	}
	reviewToken, err := randomString(tokenLength)
	if err != nil {
		return Submission{}, err
	}
	inviteToken, err := randomString(tokenLength)
	if err != nil {
		return Submission{}, err
	}

	now := time.Now().UTC()
	sub := Submission{
		Code:             code,
		EventSlug:        ns.EventSlug,
		Title:            ns.Title,
		Abstract:         ns.Abstract,
		Description:      ns.Description,
		Notes:            ns.Notes,
		Duration:         ns.Duration,
		ContentLocale:    ns.ContentLocale,
		Status:           StatusSubmitted,
		SubmissionTypeID: ns.SubmissionTypeID,
		TrackID:          ns.TrackID,
		ReviewToken:      reviewToken,
		InviteToken:      inviteToken,
		DoNotRecord:      ns.DoNotRecord,
		ImagePath:        ns.ImagePath,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	sub, err = svc.repo.CreateSubmission(sub)
	if err != nil {
		return Submission{}, err
	}
	if speaker.ID != 0 {
		if err := svc.repo.AddSpeaker(sub.Code, speaker.ID); err != nil {
			return Submission{}, err
		}
		sub.SpeakerIDs = append(sub.SpeakerIDs, speaker.ID)
	}
	svc.audit.LogAction("submission.create", speaker.ID, map[string]interface{}{"code": sub.Code})
	return sub, nil
}

func (svc *Service) generateCode() (string, error) {
	for i := 0; i < codeMaxAttempts; i++ {
		code, err := randomString(codeLength)
		if err != nil {
			return "", err
		}
		exists, err := svc.repo.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// AddSpeaker attaches a user as an additional speaker.
func (svc *Service) AddSpeaker(sub *Submission, usr user.User) error {
	if err := svc.repo.AddSpeaker(sub.Code, usr.ID); err != nil {
		return err
	}
	sub.SpeakerIDs = append(sub.SpeakerIDs, usr.ID)
	svc.audit.LogAction("submission.speakers.add", usr.ID, map[string]interface{}{"code": sub.Code})
	return nil
}

func (svc *Service) GetByCode(code string) (Submission, error) {
	return svc.repo.GetSubmissionByCode(code)
}

func (svc *Service) QueryEvent(eventSlug string) ([]Submission, error) {
	return svc.repo.QueryEventSubmissions(eventSlug)
}

func (svc *Service) Speakers(sub Submission) ([]user.User, error) {
	return svc.repo.GetSpeakers(sub.Code)
}

func (svc *Service) EventQuestions(eventSlug string) ([]Question, error) {
	return svc.repo.QueryEventQuestions(eventSlug)
}

func (svc *Service) SaveAnswer(ans Answer) (Answer, error) {
	return svc.repo.SaveAnswer(ans)
}

func (svc *Service) Answers(code string) ([]Answer, error) {
	return svc.repo.QueryAnswers(code)
}

func (svc *Service) EventSubmissionTypes(eventSlug string) ([]SubmissionType, error) {
	return svc.repo.QuerySubmissionTypes(eventSlug)
}

func (svc *Service) EventTracks(eventSlug string) ([]Track, error) {
	return svc.repo.QueryTracks(eventSlug)
}

// setState is the shared transition primitive. Same-state is a no-op; an
// unlisted transition fails with a *StateTransitionError. The new state is
// durably persisted before any side effect or notification fires.
func (svc *Service) setState(sub *Submission, target Status, actor user.User) (changed bool, err error) {
	if sub.Status == target {
		return false, nil
	}
	if !sub.Status.CanTransitionTo(target) {
		return false, &StateTransitionError{Current: sub.Status, Target: target}
	}
	return svc.writeState(sub, target, actor)
}

// forceState bypasses the transition table entirely, including out of the
// deleted state. Administrative escape hatch.
func (svc *Service) forceState(sub *Submission, target Status, actor user.User) (changed bool, err error) {
	if sub.Status == target {
		return false, nil
	}
	return svc.writeState(sub, target, actor)
}

func (svc *Service) writeState(sub *Submission, target Status, actor user.User) (bool, error) {
	old := sub.Status
	sub.Status = target
	sub.UpdatedAt = time.Now().UTC()
	changed, err := svc.repo.SaveSubmission(*sub, "status", "updated_at")
	if err != nil {
		sub.Status = old
		return false, err
	}
	if changed {
		svc.audit.LogAction("submission."+string(target), actor.ID, map[string]interface{}{
			"code": sub.Code,
			"from": string(old),
		})
	}
	return changed, nil
}

// MakeSubmitted moves a submission back into the review pool and purges
// any occurrence from the in-progress schedule.
func (svc *Service) MakeSubmitted(sub *Submission, actor user.User) error {
	changed, err := svc.setState(sub, StatusSubmitted, actor)
	if err != nil || !changed {
		return err
	}
	svc.deleteSlots(sub)
	return nil
}

// Accept marks a submission accepted, schedules a visible occurrence and
// notifies every speaker unless the talk was already confirmed.
func (svc *Service) Accept(sub *Submission, actor user.User) error {
	prev := sub.Status
	changed, err := svc.setState(sub, StatusAccepted, actor)
	if err != nil || !changed {
		return err
	}
	svc.upsertSlot(sub, true)
	if prev != StatusConfirmed {
		svc.notifySpeakers(sub, "submission_accepted")
	}
	return nil
}

// Reject removes the submission from the in-progress schedule and notifies
// every speaker.
func (svc *Service) Reject(sub *Submission, actor user.User) error {
	changed, err := svc.setState(sub, StatusRejected, actor)
	if err != nil || !changed {
		return err
	}
	svc.deleteSlots(sub)
	svc.notifySpeakers(sub, "submission_rejected")
	return nil
}

// Confirm marks the accepted talk as confirmed and its occurrence as
// visible.
func (svc *Service) Confirm(sub *Submission, actor user.User) error {
	changed, err := svc.setState(sub, StatusConfirmed, actor)
	if err != nil || !changed {
		return err
	}
	svc.upsertSlot(sub, true)
	return nil
}

func (svc *Service) Cancel(sub *Submission, actor user.User) error {
	changed, err := svc.setState(sub, StatusCanceled, actor)
	if err != nil || !changed {
		return err
	}
	svc.deleteSlots(sub)
	return nil
}

func (svc *Service) Withdraw(sub *Submission, actor user.User) error {
	changed, err := svc.setState(sub, StatusWithdrawn, actor)
	if err != nil || !changed {
		return err
	}
	svc.deleteSlots(sub)
	return nil
}

// Remove soft-deletes the submission, cascades removal onto its answers
// and purges any scheduled occurrence. Deleted is reachable from any live
// state, so the table check is bypassed.
func (svc *Service) Remove(sub *Submission, actor user.User) error {
	changed, err := svc.forceState(sub, StatusDeleted, actor)
	if err != nil || !changed {
		return err
	}
	if n, err := svc.repo.RemoveAnswers(sub.Code); err != nil {
		svc.logger.Warn(fmt.Sprintf("removing answers of %s: %v", sub.Code, err), err)
	} else if n > 0 {
		svc.audit.LogAction("submission.answers.remove", actor.ID, map[string]interface{}{
			"code":  sub.Code,
			"count": n,
		})
	}
	svc.deleteSlots(sub)
	return nil
}

// ForceState jumps to an arbitrary state, bypassing the transition table.
// Kept as a distinctly named operation so arbitrary jumps stay visible in
// calling code.
func (svc *Service) ForceState(sub *Submission, target Status, actor user.User) error {
	_, err := svc.forceState(sub, target, actor)
	return err
}

// side effects; never fail the transition

func (svc *Service) upsertSlot(sub *Submission, visible bool) {
	if err := svc.slots.UpsertSlot(sub.EventSlug, sub.Code, visible); err != nil {
		svc.logger.Warn(fmt.Sprintf("upserting WIP slot for %s: %v", sub.Code, err), err)
	}
}

func (svc *Service) deleteSlots(sub *Submission) {
	if err := svc.slots.DeleteSlots(sub.EventSlug, sub.Code); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting WIP slots for %s: %v", sub.Code, err), err)
	}
}

// notifySpeakers sends one templated mail per speaker, localized to each
// speaker's own language. Delivery is best-effort; failures are the email
// service's to log.
func (svc *Service) notifySpeakers(sub *Submission, templateName string) {
	speakers, err := svc.repo.GetSpeakers(sub.Code)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading speakers of %s: %v", sub.Code, err), err)
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(speakers))
	for _, spk := range speakers {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: spk.Name, Address: spk.Email}},
			Subject:      sub.Title,
			TemplateName: templateName,
			Locale:       spk.NotificationLocale(),
			TemplateData: map[string]interface{}{
				"SpeakerName": spk.Name,
				"Title":       sub.Title,
				"Code":        sub.Code,
				"EventSlug":   sub.EventSlug,
			},
		})
	}
	svc.mailSvc.SendMessages(msgs...)
}
