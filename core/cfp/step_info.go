package cfp

import (
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

// InfoForm collects the core proposal fields.
type InfoForm struct {
	Title             string `form:"title" json:"title" label:"Proposal title" validate:"required"`
	Abstract          string `form:"abstract" json:"abstract" widget:"textarea" help:"A short summary shown in the schedule." validate:"required"`
	Description       string `form:"description" json:"description" widget:"textarea"`
	Notes             string `form:"notes" json:"notes" widget:"textarea" help:"Only visible to organizers."`
	Duration          int    `form:"duration" json:"duration" help:"In minutes; leave empty for the session type default." validate:"omitempty,min=5,max=480"`
	ContentLocale     string `form:"content_locale" json:"content_locale" label:"Language" validate:"omitempty,locale_"`
	SubmissionTypeID  int    `form:"submission_type" json:"submission_type" label:"Session type" widget:"select" validate:"required"`
	TrackID           int    `form:"track" json:"track" widget:"select"`
	DoNotRecord       bool   `form:"do_not_record" json:"do_not_record" label:"Don't record my session" widget:"checkbox"`
	AdditionalSpeaker string `form:"additional_speaker" json:"additional_speaker" help:"We will invite this person to join as a co-speaker." validate:"omitempty,email"`
}

type infoStep struct {
	baseStep
}

func newInfoStep(deps *Deps) *infoStep {
	return &infoStep{baseStep{
		identifier: "info",
		label:      "General",
		icon:       "paper-plane",
		priority:   0,
		deps:       deps,
	}}
}

func (s *infoStep) IsApplicable(*Request) bool { return true }

func (s *infoStep) fields() []FieldMeta {
	fields := FormFields(InfoForm{})
	fields = append(fields, FieldMeta{
		Name:   "image",
		Label:  "Session image",
		Help:   "Optional; shown on the public session page.",
		Widget: "file",
	})
	return fields
}

func (s *infoStep) Render(r *Request) (*StepView, error) {
	return s.view(r, s.fields()), nil
}

func (s *infoStep) Post(r *Request) error {
	form := new(InfoForm)
	if err := BindForm(r.Form, form); err != nil {
		return err
	}
	form.Title = core.CleanString(form.Title)
	form.Abstract = core.CleanString(form.Abstract)
	form.AdditionalSpeaker = core.CleanString(form.AdditionalSpeaker, true /* lower */)
	if err := core.Validate.Struct(form); err != nil {
		return core.TranslateValidationErrors(err)
	}
	if err := s.validateChoices(r, form); err != nil {
		return err
	}

	if img, ok := r.Files["image"]; ok {
		staged, err := s.deps.Stager.Stage(img.Name, img.Content)
		if err != nil {
			return errors.Wrap(err, "staging session image")
		}
		err = s.deps.Store.PutStepFiles(r.DraftID, s.identifier, map[string]FileRef{
			"image": {
				TmpName:     staged,
				Name:        img.Name,
				ContentType: img.ContentType,
				Size:        img.Size,
				Charset:     img.Charset,
			},
		})
		if err != nil {
			return err
		}
	}
	return s.saveData(r, SerializeMap(FormData(form)))
}

// validateChoices resolves the select choices against the event's
// configured session types and tracks. A zero track means no selection.
func (s *infoStep) validateChoices(r *Request, form *InfoForm) error {
	var flds []core.FieldError

	types, err := s.deps.Submissions.EventSubmissionTypes(r.Event.Slug)
	if err != nil {
		return errors.Wrap(err, "loading session types")
	}
	if !containsID(typeIDs(types), form.SubmissionTypeID) {
		flds = append(flds, core.FieldError{Field: "submission_type", Error: "unknown session type"})
	}

	if form.TrackID != 0 {
		tracks, err := s.deps.Submissions.EventTracks(r.Event.Slug)
		if err != nil {
			return errors.Wrap(err, "loading tracks")
		}
		if !containsID(trackIDs(tracks), form.TrackID) {
			flds = append(flds, core.FieldError{Field: "track", Error: "unknown track"})
		}
	}

	if flds != nil {
		return core.NewValidationError(errors.New("unknown choices"), flds...)
	}
	return nil
}

func typeIDs(types []submission.SubmissionType) []int {
	ids := make([]int, 0, len(types))
	for _, st := range types {
		ids = append(ids, st.ID)
	}
	return ids
}

func trackIDs(tracks []submission.Track) []int {
	ids := make([]int, 0, len(tracks))
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
	}
	return ids
}

func containsID(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func (s *infoStep) IsCompleted(r *Request) bool {
	data := s.stepData(r)
	if len(data) == 0 {
		return false
	}
	form := new(InfoForm)
	if err := BindDraft(data, form); err != nil {
		return false
	}
	return core.Validate.Struct(form) == nil
}

func (s *infoStep) Done(r *Request) error {
	d, err := s.draft(r)
	if err != nil {
		return err
	}
	form := new(InfoForm)
	if err := BindDraft(d.StepData(s.identifier), form); err != nil {
		return err
	}

	ns := submission.NewSubmission{
		EventSlug:        r.Event.Slug,
		Title:            form.Title,
		Abstract:         form.Abstract,
		Description:      form.Description,
		Notes:            form.Notes,
		Duration:         form.Duration,
		ContentLocale:    form.ContentLocale,
		SubmissionTypeID: form.SubmissionTypeID,
		TrackID:          form.TrackID,
		DoNotRecord:      form.DoNotRecord,
	}
	if ref, ok := d.StepFiles(s.identifier)["image"]; ok {
		ns.ImagePath = ref.TmpName
	}

	var speaker user.User
	if r.User != nil {
		speaker = *r.User
	}
	sub, err := s.deps.Submissions.Create(ns, speaker)
	if err != nil {
		return err
	}
	r.Submission = &sub

	if form.AdditionalSpeaker != "" {
		if err := s.sendSpeakerInvite(r, &sub, form.AdditionalSpeaker); err != nil {
			// partial completion is accepted: the proposal exists, the
			// invite just did not go out
			msg := fmt.Sprintf("could not invite %s as a co-speaker", form.AdditionalSpeaker)
			s.deps.Logger.Warn(msg, err)
			r.warn(msg)
		}
	}
	return nil
}

func (s *infoStep) sendSpeakerInvite(r *Request, sub *submission.Submission, email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.Wrap(err, "invalid co-speaker address")
	}
	s.deps.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      sub.Title,
		TemplateName: "speaker_invite",
		TemplateData: map[string]interface{}{
			"Title":       sub.Title,
			"Code":        sub.Code,
			"EventSlug":   sub.EventSlug,
			"InviteToken": sub.InviteToken,
		},
	})
	return nil
}

func (s *infoStep) Describe(Event) StepDescription {
	return StepDescription{
		Identifier: s.identifier,
		Label:      s.label,
		Icon:       s.icon,
		Priority:   s.priority,
		Fields:     s.fields(),
	}
}
