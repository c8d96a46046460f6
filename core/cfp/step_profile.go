package cfp

import (
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core"
)

// ProfileForm collects the public speaker bio.
type ProfileForm struct {
	Biography string `form:"biography" json:"biography" widget:"textarea" help:"Shown publicly next to your sessions." validate:"required"`
}

type profileStep struct {
	baseStep
}

func newProfileStep(deps *Deps) *profileStep {
	return &profileStep{baseStep{
		identifier: "profile",
		label:      "Profile",
		icon:       "address-card",
		priority:   75,
		deps:       deps,
	}}
}

func (s *profileStep) IsApplicable(*Request) bool { return true }

func (s *profileStep) Render(r *Request) (*StepView, error) {
	view := s.view(r, FormFields(ProfileForm{}))
	// prefill from an existing profile for logged-in speakers
	if r.User != nil {
		if _, ok := view.Data["biography"]; !ok {
			if p, err := s.deps.Users.GetProfile(r.User.ID, r.Event.Slug); err == nil {
				view.Data["biography"] = p.Biography
			}
		}
	}
	return view, nil
}

func (s *profileStep) Post(r *Request) error {
	form := new(ProfileForm)
	if err := BindForm(r.Form, form); err != nil {
		return err
	}
	form.Biography = core.CleanString(form.Biography)
	if err := core.Validate.Struct(form); err != nil {
		return core.TranslateValidationErrors(err)
	}
	return s.saveData(r, SerializeMap(FormData(form)))
}

func (s *profileStep) IsCompleted(r *Request) bool {
	data := s.stepData(r)
	if len(data) == 0 {
		return false
	}
	form := new(ProfileForm)
	if err := BindDraft(data, form); err != nil {
		return false
	}
	return core.Validate.Struct(form) == nil
}

func (s *profileStep) Done(r *Request) error {
	if r.User == nil {
		return errors.New("cfp: profile step finalized without a user")
	}
	form := new(ProfileForm)
	if err := BindDraft(s.stepData(r), form); err != nil {
		return err
	}
	_, err := s.deps.Users.SaveBiography(r.User.ID, r.Event.Slug, form.Biography)
	return err
}

func (s *profileStep) Describe(Event) StepDescription {
	return StepDescription{
		Identifier: s.identifier,
		Label:      s.label,
		Icon:       s.icon,
		Priority:   s.priority,
		Fields:     FormFields(ProfileForm{}),
	}
}
