package submission_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
	appfs "github.com/eventyay/cfp/fs"
	emailsvc "github.com/eventyay/cfp/services/email"
	inmemdb "github.com/eventyay/cfp/storage/database/inmem"
)

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type auditEntry struct {
	action  string
	actorID int
	data    map[string]interface{}
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (ar *auditRecorder) LogAction(action string, actorID int, data map[string]interface{}) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	ar.entries = append(ar.entries, auditEntry{action, actorID, data})
}

func (ar *auditRecorder) actions() []string {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	actions := make([]string, 0, len(ar.entries))
	for _, e := range ar.entries {
		actions = append(actions, e.action)
	}
	return actions
}

type testEnv struct {
	svc      *submission.Service
	schedSvc *schedule.Service
	usrRepo  interface {
		CreateUser(user.User) (user.User, error)
	}
	subRepo submission.Repository
	audit   *auditRecorder
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	core.TemplateFS = appfs.FS
	emailsvc.ClearSentMessages()

	db := inmemdb.Open()
	schedSvc := schedule.NewService(inmemdb.NewScheduleRepository(db))
	audit := &auditRecorder{}
	subRepo := inmemdb.NewSubmissionRepository(db)
	svc := submission.NewService(subRepo, schedSvc, emailsvc.NewConsoleServiceMock(), audit, testLogger{})
	return &testEnv{
		svc:      svc,
		schedSvc: schedSvc,
		usrRepo:  inmemdb.NewUserRepository(db),
		subRepo:  subRepo,
		audit:    audit,
	}
}

func (env *testEnv) createUser(t *testing.T, name, email, locale string) user.User {
	t.Helper()
	usr, err := env.usrRepo.CreateUser(user.User{Name: name, Email: email, Locale: locale, IsActive: true})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createSubmission(t *testing.T, speaker user.User) submission.Submission {
	t.Helper()
	sub, err := env.svc.Create(submission.NewSubmission{
		EventSlug:        "democon",
		Title:            "A talk about talks",
		Abstract:         "Meta, but in a good way.",
		SubmissionTypeID: 1,
	}, speaker)
	require.NoError(t, err)
	return sub
}

func TestServiceCreate(t *testing.T) {
	env := setup(t)
	spk := env.createUser(t, "Ada", "ada@test.cd", "en")

	sub := env.createSubmission(t, spk)

	assert.Len(t, sub.Code, 6)
	for _, c := range sub.Code {
		assert.Contains(t, "ABCDEFGHJKLMNPQRSTUVWXYZ3789", string(c))
	}
	assert.Equal(t, submission.StatusSubmitted, sub.Status)
	assert.Len(t, sub.ReviewToken, 32)
	assert.Len(t, sub.InviteToken, 32)
	assert.NotEqual(t, sub.ReviewToken, sub.InviteToken)
	assert.Equal(t, []int{spk.ID}, sub.SpeakerIDs)
	assert.Equal(t, []string{"submission.create"}, env.audit.actions())

	got, err := env.svc.GetByCode(sub.Code)
	require.NoError(t, err)
	assert.Equal(t, sub.Code, got.Code)
}

func TestServiceCreateAnonymous(t *testing.T) {
	env := setup(t)

	sub := env.createSubmission(t, user.User{})
	assert.Empty(t, sub.SpeakerIDs)
}

func TestServiceAccept(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	kurt := env.createUser(t, "Kurt", "kurt@test.cd", "de")
	sub := env.createSubmission(t, ada)
	require.NoError(t, env.svc.AddSpeaker(&sub, kurt))

	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	assert.Equal(t, submission.StatusAccepted, sub.Status)

	// one localized mail per speaker
	require.Len(t, emailsvc.SentMessages, 2)
	locales := []string{emailsvc.SentMessages[0].Locale, emailsvc.SentMessages[1].Locale}
	assert.ElementsMatch(t, []string{"en", "de"}, locales)
	for _, msg := range emailsvc.SentMessages {
		assert.Equal(t, "submission_accepted", msg.TemplateName)
		assert.Contains(t, msg.TextContent, sub.Code)
	}

	// a visible occurrence appears in the in-progress schedule
	slots, err := env.schedSvc.WIPSlots(sub.EventSlug)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, sub.Code, slots[0].SubmissionCode)
	assert.True(t, slots[0].IsVisible)
}

func TestServiceAcceptIsIdempotent(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	sent := len(emailsvc.SentMessages)
	audited := len(env.audit.actions())

	// accepting an accepted talk changes nothing and fires nothing
	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	assert.Len(t, emailsvc.SentMessages, sent)
	assert.Len(t, env.audit.actions(), audited)
}

func TestServiceAcceptFromConfirmedSendsNoMail(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	require.NoError(t, env.svc.Confirm(&sub, ada))
	emailsvc.ClearSentMessages()

	// un-confirming back to accepted is a bookkeeping move, not news
	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	assert.Empty(t, emailsvc.SentMessages)
}

func TestServiceReject(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	kurt := env.createUser(t, "Kurt", "kurt@test.cd", "de")
	sub := env.createSubmission(t, ada)
	require.NoError(t, env.svc.AddSpeaker(&sub, kurt))

	require.NoError(t, env.svc.Accept(&sub, user.User{}))
	emailsvc.ClearSentMessages()

	require.NoError(t, env.svc.Reject(&sub, user.User{}))
	assert.Equal(t, submission.StatusRejected, sub.Status)

	// one localized mail per speaker
	require.Len(t, emailsvc.SentMessages, 2)
	locales := []string{emailsvc.SentMessages[0].Locale, emailsvc.SentMessages[1].Locale}
	assert.ElementsMatch(t, []string{"en", "de"}, locales)
	for _, msg := range emailsvc.SentMessages {
		assert.Equal(t, "submission_rejected", msg.TemplateName)
	}

	// the occurrence is gone from the in-progress schedule
	slots, err := env.schedSvc.WIPSlots(sub.EventSlug)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestServiceIllegalTransition(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	err := env.svc.Confirm(&sub, ada)
	require.Error(t, err)
	var stErr *submission.StateTransitionError
	require.True(t, errors.As(err, &stErr))
	assert.EqualError(t, err, "Proposal must be accepted or canceled to be confirmed.")

	// the submission is untouched
	assert.Equal(t, submission.StatusSubmitted, sub.Status)
	got, gerr := env.svc.GetByCode(sub.Code)
	require.NoError(t, gerr)
	assert.Equal(t, submission.StatusSubmitted, got.Status)
	assert.Empty(t, emailsvc.SentMessages)
}

func TestServiceWithdrawAndResubmit(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	require.NoError(t, env.svc.Withdraw(&sub, ada))
	assert.Equal(t, submission.StatusWithdrawn, sub.Status)

	require.NoError(t, env.svc.MakeSubmitted(&sub, ada))
	assert.Equal(t, submission.StatusSubmitted, sub.Status)
}

func TestServiceRemove(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	for i, answer := range []string{"42", "yes"} {
		_, err := env.svc.SaveAnswer(submission.Answer{
			QuestionID:     i + 1,
			SubmissionCode: sub.Code,
			Answer:         answer,
		})
		require.NoError(t, err)
	}
	require.NoError(t, env.svc.Accept(&sub, user.User{}))

	require.NoError(t, env.svc.Remove(&sub, user.User{}))
	assert.Equal(t, submission.StatusDeleted, sub.Status)

	answers, err := env.svc.Answers(sub.Code)
	require.NoError(t, err)
	for _, ans := range answers {
		assert.True(t, ans.Removed)
	}

	slots, err := env.schedSvc.WIPSlots(sub.EventSlug)
	require.NoError(t, err)
	assert.Empty(t, slots)

	assert.Contains(t, env.audit.actions(), "submission.deleted")
	assert.Contains(t, env.audit.actions(), "submission.answers.remove")

	// no legal move leads out of deleted
	err = env.svc.MakeSubmitted(&sub, user.User{})
	var stErr *submission.StateTransitionError
	require.True(t, errors.As(err, &stErr))
}

func TestServiceForceState(t *testing.T) {
	env := setup(t)
	ada := env.createUser(t, "Ada", "ada@test.cd", "en")
	sub := env.createSubmission(t, ada)

	require.NoError(t, env.svc.Remove(&sub, user.User{}))
	require.Equal(t, submission.StatusDeleted, sub.Status)

	// forcing ignores the transition table, even out of deleted
	require.NoError(t, env.svc.ForceState(&sub, submission.StatusConfirmed, user.User{}))
	assert.Equal(t, submission.StatusConfirmed, sub.Status)

	got, err := env.svc.GetByCode(sub.Code)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusConfirmed, got.Status)

	// forcing the current state is a no-op
	audited := len(env.audit.actions())
	require.NoError(t, env.svc.ForceState(&sub, submission.StatusConfirmed, user.User{}))
	assert.Len(t, env.audit.actions(), audited)
}
