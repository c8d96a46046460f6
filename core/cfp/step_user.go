package cfp

import (
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/user"
)

// LoginForm authenticates a returning speaker mid-wizard.
type LoginForm struct {
	Username string `form:"login_username" json:"login_username" label:"Username or email" validate:"required"`
	Password string `form:"login_password" json:"login_password" widget:"password" validate:"required"`
}

// RegisterForm creates an account for a first-time speaker.
type RegisterForm struct {
	Name            string `form:"register_name" json:"register_name" label:"Name" validate:"required"`
	Email           string `form:"register_email" json:"register_email" label:"Email" validate:"required,email"`
	Locale          string `form:"register_locale" json:"register_locale" label:"Preferred language" validate:"omitempty,locale_"`
	Password        string `form:"register_password" json:"register_password" widget:"password" validate:"required"`
	PasswordConfirm string `form:"register_password_confirm" json:"register_password_confirm" label:"Password (again)" widget:"password" validate:"required,eqfield=Password"`
}

// userStep only participates for anonymous visitors; it registers a new
// account or logs an existing one in when the wizard finalizes.
type userStep struct {
	baseStep
}

func newUserStep(deps *Deps) *userStep {
	return &userStep{baseStep{
		identifier: "user",
		label:      "Account",
		icon:       "user-circle",
		priority:   49,
		deps:       deps,
	}}
}

func (s *userStep) IsApplicable(r *Request) bool {
	return r.User == nil
}

func (s *userStep) fields() []FieldMeta {
	fields := []FieldMeta{{
		Name:     "action",
		Label:    "Login or register",
		Required: true,
		Widget:   "select",
	}}
	fields = append(fields, FormFields(LoginForm{})...)
	fields = append(fields, FormFields(RegisterForm{})...)
	return fields
}

func (s *userStep) Render(r *Request) (*StepView, error) {
	return s.view(r, s.fields()), nil
}

func (s *userStep) Post(r *Request) error {
	action := r.FormValue("action")
	switch action {
	case "login":
		form := new(LoginForm)
		if err := BindForm(r.Form, form); err != nil {
			return err
		}
		form.Username = core.CleanString(form.Username, true /* lower */)
		if err := core.Validate.Struct(form); err != nil {
			return core.TranslateValidationErrors(err)
		}
		// authenticate now so a typo'd password fails the step, not the
		// whole wizard
		usr, err := s.deps.Users.Authenticate(form.Username, form.Password)
		if err != nil {
			if err == user.ErrAuthFailed || err == user.ErrDeactivated {
				return core.NewValidationError(err, core.FieldError{Field: "login_username", Error: err.Error()})
			}
			return err
		}
		// the draft only keeps the account reference, never the password
		return s.saveData(r, map[string]interface{}{
			"action":         action,
			"login_username": form.Username,
			"user_id":        usr.ID,
		})
	case "register":
		form := new(RegisterForm)
		if err := BindForm(r.Form, form); err != nil {
			return err
		}
		nu := s.newUser(form)
		if err := nu.Validate(s.deps.Users); err != nil {
			return err
		}
		// hash now; the plaintext password never reaches the draft store
		var tmp user.User
		if err := tmp.SetPassword(form.Password); err != nil {
			return err
		}
		return s.saveData(r, map[string]interface{}{
			"action":                 action,
			"register_name":          nu.Name,
			"register_email":         nu.Email,
			"register_locale":        nu.Locale,
			"register_password_hash": string(tmp.PasswordHash),
		})
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: "choose to log in or to register"})
	}
}

func (s *userStep) newUser(form *RegisterForm) *user.NewUser {
	return &user.NewUser{
		Name:            form.Name,
		Email:           form.Email,
		Locale:          form.Locale,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
	}
}

func (s *userStep) IsCompleted(r *Request) bool {
	data := s.stepData(r)
	if len(data) == 0 {
		return false
	}
	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}
	switch data["action"] {
	case "login":
		return draftInt(data["user_id"]) != 0
	case "register":
		return str("register_name") != "" && str("register_email") != "" &&
			str("register_password_hash") != ""
	default:
		return false
	}
}

func (s *userStep) Done(r *Request) error {
	data := s.stepData(r)
	str := func(key string) string {
		v, _ := data[key].(string)
		return v
	}
	var usr user.User
	var err error
	switch data["action"] {
	case "login":
		usr, err = s.deps.Users.GetByID(draftInt(data["user_id"]))
	case "register":
		usr, err = s.deps.Users.RegisterHashed(user.NewUser{
			Name:   str("register_name"),
			Email:  str("register_email"),
			Locale: str("register_locale"),
		}, []byte(str("register_password_hash")))
	default:
		return errors.New("cfp: user step finalized without stored credentials")
	}
	if err != nil {
		return err
	}
	r.User = &usr

	// the proposal was created by an earlier step while the visitor was
	// still anonymous; claim it now
	if r.Submission != nil {
		return s.deps.Submissions.AddSpeaker(r.Submission, usr)
	}
	return nil
}

func (s *userStep) Describe(Event) StepDescription {
	return StepDescription{
		Identifier: s.identifier,
		Label:      s.label,
		Icon:       s.icon,
		Priority:   s.priority,
		Fields:     s.fields(),
	}
}
