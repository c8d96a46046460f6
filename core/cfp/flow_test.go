package cfp_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/cfp"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
	appfs "github.com/eventyay/cfp/fs"
	emailsvc "github.com/eventyay/cfp/services/email"
	inmemdb "github.com/eventyay/cfp/storage/database/inmem"
	"github.com/eventyay/cfp/storage/filestage"
	"github.com/eventyay/cfp/storage/session"
)

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type noopAudit struct{}

func (noopAudit) LogAction(string, int, map[string]interface{}) {}

func newWizardEnv(t *testing.T) (*cfp.Deps, cfp.Event, *seededRepos) {
	t.Helper()
	core.TemplateFS = appfs.FS
	emailsvc.ClearSentMessages()

	db := inmemdb.Open()
	subRepo := inmemdb.NewSubmissionRepository(db)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), emailsvc.NewConsoleServiceMock())
	schedSvc := schedule.NewService(inmemdb.NewScheduleRepository(db))
	subSvc := submission.NewService(subRepo, schedSvc, emailsvc.NewConsoleServiceMock(), noopAudit{}, testLogger{})

	events := inmemdb.NewEventSource(db)
	event := cfp.Event{
		Slug:        "democon",
		Name:        "DemoCon",
		Locales:     []string{"en", "de"},
		CfPDeadline: time.Now().Add(24 * time.Hour),
	}
	events.SeedEvent(event)

	store := session.NewInmemDraftStore()
	deps := &cfp.Deps{
		Submissions: subSvc,
		Users:       usrSvc,
		Store:       store,
		Stager:      filestage.New(t.TempDir()),
		Mailer:      emailsvc.NewConsoleServiceMock(),
		Logger:      testLogger{},
	}
	return deps, event, &seededRepos{subRepo: subRepo, usrSvc: usrSvc, subSvc: subSvc, store: store}
}

type seededRepos struct {
	subRepo interface {
		SeedQuestion(submission.Question) submission.Question
		SeedSubmissionType(submission.SubmissionType) submission.SubmissionType
		SeedTrack(submission.Track) submission.Track
	}
	usrSvc *user.Service
	subSvc *submission.Service
	store  cfp.DraftStore
}

func stepIdentifiers(steps []cfp.Step) []string {
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.Identifier())
	}
	return ids
}

func TestFlowBaseOrdering(t *testing.T) {
	deps, event, _ := newWizardEnv(t)
	flow := cfp.NewFlow(event, deps, nil)
	assert.Equal(t, []string{"info", "questions", "user", "profile"}, stepIdentifiers(flow.Steps()))
}

// fakeStep is a minimal contributed step for registry tests.
type fakeStep struct {
	id         string
	priority   int
	applicable bool
	completed  bool
	done       func(r *cfp.Request) error
}

func (s *fakeStep) Identifier() string { return s.id }
func (s *fakeStep) Label() string      { return s.id }
func (s *fakeStep) Icon() string       { return "puzzle-piece" }
func (s *fakeStep) Priority() int      { return s.priority }

func (s *fakeStep) IsApplicable(*cfp.Request) bool { return s.applicable }
func (s *fakeStep) IsCompleted(*cfp.Request) bool  { return s.completed }

func (s *fakeStep) Render(*cfp.Request) (*cfp.StepView, error) {
	return &cfp.StepView{Identifier: s.id}, nil
}

func (s *fakeStep) Post(*cfp.Request) error { return nil }

func (s *fakeStep) Done(r *cfp.Request) error {
	if s.done != nil {
		return s.done(r)
	}
	return nil
}

func (s *fakeStep) Describe(cfp.Event) cfp.StepDescription {
	return cfp.StepDescription{Identifier: s.id, Priority: s.priority}
}

func TestFlowContributedStepOrdering(t *testing.T) {
	deps, event, _ := newWizardEnv(t)

	registry := cfp.NewStepRegistry()
	registry.Register(func(cfp.Event, *cfp.Deps) cfp.Step {
		return &fakeStep{id: "availability", priority: 25, applicable: true, completed: true}
	})
	registry.Register(func(cfp.Event, *cfp.Deps) cfp.Step {
		return &fakeStep{id: "travel", priority: 60, applicable: true, completed: true}
	})

	flow := cfp.NewFlow(event, deps, registry)
	// equal priority sorts after the base step it ties with
	assert.Equal(t,
		[]string{"info", "questions", "availability", "user", "travel", "profile"},
		stepIdentifiers(flow.Steps()))
}

func TestFlowRegisterForEvent(t *testing.T) {
	deps, event, _ := newWizardEnv(t)

	registry := cfp.NewStepRegistry()
	registry.RegisterForEvent("othercon", func(cfp.Event, *cfp.Deps) cfp.Step {
		return &fakeStep{id: "availability", priority: 90, applicable: true}
	})

	flow := cfp.NewFlow(event, deps, registry)
	assert.Equal(t, []string{"info", "questions", "user", "profile"}, stepIdentifiers(flow.Steps()))

	other := cfp.NewFlow(cfp.Event{Slug: "othercon"}, deps, registry)
	assert.Contains(t, stepIdentifiers(other.Steps()), "availability")
}

func TestFlowStepByIdentifier(t *testing.T) {
	deps, event, _ := newWizardEnv(t)
	flow := cfp.NewFlow(event, deps, nil)

	step, err := flow.StepByIdentifier("profile")
	require.NoError(t, err)
	assert.Equal(t, "profile", step.Identifier())

	_, err = flow.StepByIdentifier("nope")
	assert.True(t, errors.Is(err, cfp.ErrUnknownStep))
}

func TestFlowApplicability(t *testing.T) {
	deps, event, _ := newWizardEnv(t)
	flow := cfp.NewFlow(event, deps, nil)

	// anonymous visitor, no questions configured
	r := &cfp.Request{Event: event, DraftID: "draft-1"}
	info := flow.FirstApplicable(r)
	require.NotNil(t, info)
	assert.Equal(t, "info", info.Identifier())

	// questions vanish when none are configured
	next := flow.NextApplicable(r, info)
	require.NotNil(t, next)
	assert.Equal(t, "user", next.Identifier())

	// logged-in visitors skip the account step
	r.User = &user.User{ID: 7}
	next = flow.NextApplicable(r, info)
	require.NotNil(t, next)
	assert.Equal(t, "profile", next.Identifier())
	assert.Nil(t, flow.NextApplicable(r, next))

	prev := flow.PrevApplicable(r, next)
	require.NotNil(t, prev)
	assert.Equal(t, "info", prev.Identifier())
	assert.Nil(t, flow.PrevApplicable(r, prev))
}

func TestFlowFirstIncomplete(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)
	talk := seeded.subRepo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: event.Slug, Name: "Talk", DefaultDuration: 30,
	})
	flow := cfp.NewFlow(event, deps, nil)

	r := &cfp.Request{Event: event, DraftID: "draft-2"}

	// nothing posted yet: the entry step blocks everything after it
	profile, err := flow.StepByIdentifier("profile")
	require.NoError(t, err)
	incomplete := flow.FirstIncomplete(r, profile)
	require.NotNil(t, incomplete)
	assert.Equal(t, "info", incomplete.Identifier())

	// the guard never looks at upTo itself
	info, err := flow.StepByIdentifier("info")
	require.NoError(t, err)
	assert.Nil(t, flow.FirstIncomplete(r, info))

	r.Form = map[string][]string{
		"title":           {"Generics in anger"},
		"abstract":        {"Lessons from a year of type parameters."},
		"submission_type": {intString(talk.ID)},
	}
	require.NoError(t, info.Post(r))

	incomplete = flow.FirstIncomplete(r, profile)
	require.NotNil(t, incomplete)
	assert.Equal(t, "user", incomplete.Identifier())
}

func TestInfoStepRejectsUnknownChoices(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)
	talk := seeded.subRepo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: event.Slug, Name: "Talk", DefaultDuration: 30,
	})
	flow := cfp.NewFlow(event, deps, nil)

	r := &cfp.Request{Event: event, DraftID: "draft-5"}
	step := flow.FirstApplicable(r)
	require.Equal(t, "info", step.Identifier())
	r.Form = map[string][]string{
		"title":           {"Ghost talk"},
		"abstract":        {"On sessions that were never configured."},
		"submission_type": {"999"},
		"track":           {"424242"},
	}

	err := step.Post(r)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	assert.Contains(t, flds, "submission_type")
	assert.Contains(t, flds, "track")

	// nothing was stored, the step stays incomplete
	assert.False(t, step.IsCompleted(r))

	// a valid type with no track selection passes
	r.Form = map[string][]string{
		"title":           {"Ghost talk"},
		"abstract":        {"On sessions that were never configured."},
		"submission_type": {intString(talk.ID)},
	}
	require.NoError(t, step.Post(r))
}

func TestFlowFinalizeRejectsIncompletePath(t *testing.T) {
	deps, event, _ := newWizardEnv(t)
	flow := cfp.NewFlow(event, deps, nil)

	r := &cfp.Request{Event: event, DraftID: "draft-3"}
	_, err := flow.Finalize(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not completed")
}

func TestFlowDescribe(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)
	seeded.subRepo.SeedQuestion(submission.Question{
		EventSlug: event.Slug,
		Variant:   submission.QuestionText,
		Question:  "What do you need on stage?",
		Active:    true,
		Position:  1,
	})
	seeded.subRepo.SeedQuestion(submission.Question{
		EventSlug: event.Slug,
		Variant:   submission.QuestionText,
		Question:  "Retired question",
		Active:    false,
		Position:  2,
	})

	flow := cfp.NewFlow(event, deps, nil)
	descs := flow.Describe()
	require.Len(t, descs, 4)

	byID := make(map[string]cfp.StepDescription, len(descs))
	for _, d := range descs {
		byID[d.Identifier] = d
	}

	info := byID["info"]
	var titleField *cfp.FieldMeta
	for i := range info.Fields {
		if info.Fields[i].Name == "title" {
			titleField = &info.Fields[i]
		}
	}
	require.NotNil(t, titleField)
	assert.True(t, titleField.Required)

	// inactive questions stay out of the editor view
	questions := byID["questions"]
	require.Len(t, questions.Fields, 1)
	assert.Equal(t, "What do you need on stage?", questions.Fields[0].Label)
}

func TestWizardAnonymousEndToEnd(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)

	talk := seeded.subRepo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: event.Slug, Name: "Talk", DefaultDuration: 30,
	})
	community := seeded.subRepo.SeedTrack(submission.Track{
		EventSlug: event.Slug, Name: "Community",
	})
	q := seeded.subRepo.SeedQuestion(submission.Question{
		EventSlug: event.Slug,
		Variant:   submission.QuestionText,
		Question:  "Who is your audience?",
		Required:  true,
		TrackIDs:  []int{community.ID},
		Active:    true,
		Position:  1,
	})

	flow := cfp.NewFlow(event, deps, nil)
	r := &cfp.Request{Event: event, DraftID: "attempt-1"}

	step := flow.FirstApplicable(r)
	require.Equal(t, "info", step.Identifier())
	r.Form = map[string][]string{
		"title":           {"  Growing a community  "},
		"abstract":        {"Ten years of local meetups."},
		"submission_type": {intString(talk.ID)},
		"track":           {intString(community.ID)},
		"do_not_record":   {"on"},
	}
	require.NoError(t, step.Post(r))

	// the track choice pulled the questions step into the path
	step = flow.NextApplicable(r, step)
	require.NotNil(t, step)
	require.Equal(t, "questions", step.Identifier())

	view, err := step.Render(r)
	require.NoError(t, err)
	require.Len(t, view.Fields, 1)
	fieldName := view.Fields[0].Name

	// a required question left blank fails the step
	r.Form = map[string][]string{}
	err = step.Post(r)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))

	r.Form = map[string][]string{fieldName: {"Community organizers"}}
	require.NoError(t, step.Post(r))

	step = flow.NextApplicable(r, step)
	require.NotNil(t, step)
	require.Equal(t, "user", step.Identifier())
	r.Form = map[string][]string{
		"action":                    {"register"},
		"register_name":             {"Ada"},
		"register_email":            {"ada@test.cd"},
		"register_locale":           {"de"},
		"register_password":         {"S3cret!Pass"},
		"register_password_confirm": {"S3cret!Pass"},
	}
	require.NoError(t, step.Post(r))

	step = flow.NextApplicable(r, step)
	require.NotNil(t, step)
	require.Equal(t, "profile", step.Identifier())
	r.Form = map[string][]string{"biography": {"Organizer of meetups, teller of war stories."}}
	require.NoError(t, step.Post(r))
	require.Nil(t, flow.NextApplicable(r, step))

	warnings, err := flow.Finalize(r)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// the proposal exists, owned by the freshly registered account
	require.NotNil(t, r.Submission)
	sub := *r.Submission
	assert.Equal(t, submission.StatusSubmitted, sub.Status)
	assert.Equal(t, "Growing a community", sub.Title)
	assert.Equal(t, talk.ID, sub.SubmissionTypeID)
	assert.Equal(t, community.ID, sub.TrackID)
	assert.True(t, sub.DoNotRecord)

	require.NotNil(t, r.User)
	usr, err := seeded.usrSvc.GetByEmail("ada@test.cd")
	require.NoError(t, err)
	assert.Equal(t, []int{usr.ID}, sub.SpeakerIDs)
	assert.Equal(t, "de", usr.Locale)

	answers, err := seeded.subSvc.Answers(sub.Code)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, q.ID, answers[0].QuestionID)
	assert.Equal(t, "Community organizers", answers[0].Answer)

	profile, err := seeded.usrSvc.GetProfile(usr.ID, event.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Organizer of meetups, teller of war stories.", profile.Biography)

	// the draft is gone once the wizard finishes
	d, err := seeded.store.GetDraft(r.DraftID)
	require.NoError(t, err)
	assert.Empty(t, d.Data)
}

func TestUserStepDraftOmitsPasswords(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)
	flow := cfp.NewFlow(event, deps, nil)
	step, err := flow.StepByIdentifier("user")
	require.NoError(t, err)

	r := &cfp.Request{Event: event, DraftID: "draft-6"}
	r.Form = map[string][]string{
		"action":                    {"register"},
		"register_name":             {"Ada"},
		"register_email":            {"Ada@Test.cd"},
		"register_password":         {"S3cret!Pass"},
		"register_password_confirm": {"S3cret!Pass"},
	}
	require.NoError(t, step.Post(r))
	assert.True(t, step.IsCompleted(r))

	d, err := seeded.store.GetDraft(r.DraftID)
	require.NoError(t, err)
	data := d.StepData("user")
	assert.NotContains(t, data, "register_password")
	assert.NotContains(t, data, "register_password_confirm")
	assert.Equal(t, "ada@test.cd", data["register_email"])
	hash, _ := data["register_password_hash"].(string)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "S3cret!Pass")

	// login drafts keep the account reference, never the password
	kurt, err := seeded.usrSvc.Register(user.NewUser{
		Name: "Kurt", Email: "kurt@test.cd",
		Password: "S3cret!Pass", PasswordConfirm: "S3cret!Pass",
	})
	require.NoError(t, err)

	r2 := &cfp.Request{Event: event, DraftID: "draft-7"}
	r2.Form = map[string][]string{
		"action":         {"login"},
		"login_username": {"kurt@test.cd"},
		"login_password": {"S3cret!Pass"},
	}
	require.NoError(t, step.Post(r2))
	assert.True(t, step.IsCompleted(r2))

	d2, err := seeded.store.GetDraft(r2.DraftID)
	require.NoError(t, err)
	data2 := d2.StepData("user")
	assert.NotContains(t, data2, "login_password")
	assert.EqualValues(t, kurt.ID, data2["user_id"])
}

func TestWizardCoSpeakerInvite(t *testing.T) {
	deps, event, seeded := newWizardEnv(t)
	talk := seeded.subRepo.SeedSubmissionType(submission.SubmissionType{
		EventSlug: event.Slug, Name: "Talk", DefaultDuration: 30,
	})

	usr, err := seeded.usrSvc.Register(user.NewUser{
		Name: "Kurt", Email: "kurt@test.cd",
		Password: "S3cret!Pass", PasswordConfirm: "S3cret!Pass",
	})
	require.NoError(t, err)

	flow := cfp.NewFlow(event, deps, nil)
	r := &cfp.Request{Event: event, DraftID: "attempt-2", User: &usr}

	step := flow.FirstApplicable(r)
	r.Form = map[string][]string{
		"title":              {"Pair talks"},
		"abstract":           {"Two heads, one slide deck."},
		"submission_type":    {intString(talk.ID)},
		"additional_speaker": {"Ada@Test.cd"},
	}
	require.NoError(t, step.Post(r))

	step = flow.NextApplicable(r, step)
	require.Equal(t, "profile", step.Identifier())
	r.Form = map[string][]string{"biography": {"Speaker."}}
	require.NoError(t, step.Post(r))

	warnings, err := flow.Finalize(r)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.NotNil(t, r.Submission)

	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "speaker_invite", msg.TemplateName)
	assert.Equal(t, "ada@test.cd", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, r.Submission.InviteToken)
}

func intString(n int) string { return strconv.Itoa(n) }
