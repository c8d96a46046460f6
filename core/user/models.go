package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eventyay/cfp/core"
)

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Locale       string    `json:"locale"` // preferred language for notifications
	IsActive     bool      `json:"is_active"`
	IsOrganizer  bool      `json:"is_organizer"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NotificationLocale never returns an empty locale.
func (u *User) NotificationLocale() string {
	if u.Locale == "" {
		return core.DefaultLocale
	}
	return u.Locale
}

// Profile is a speaker's public bio for one event.
type Profile struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	EventSlug string    `json:"event_slug"`
	Biography string    `json:"biography"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Locale          string `json:"locale" validate:"omitempty,locale_"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return core.TranslateValidationErrors(err)
	}
	return svc.checkUniqueness(nu.Username, nu.Email)
}

// ResetUserPassword carries the uid/token pair from a reset link along
// with the new password.
type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate() error {
	if err := core.Validate.Struct(rp); err != nil {
		return core.TranslateValidationErrors(err)
	}
	return nil
}

// UpdateProfile defines the speaker bio edit payload.
type UpdateProfile struct {
	Biography string `json:"biography" validate:"required"`
}

func (up *UpdateProfile) Validate() error {
	up.Biography = core.CleanString(up.Biography)
	if err := core.Validate.Struct(up); err != nil {
		return core.TranslateValidationErrors(err)
	}
	return nil
}
