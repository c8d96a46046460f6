package user

import (
	"errors"
	"net/mail"
	"time"

	"github.com/eventyay/cfp/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrDeactivated    = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		GetUserByID(id int) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		UpdateUser(user User) (User, error)

		GetProfile(userID int, eventSlug string) (Profile, error)
		UpsertProfile(profile Profile) (Profile, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) checkUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Register creates an active account for a wizard visitor.
func (svc *Service) Register(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Locale:    nu.Locale,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

// RegisterHashed creates an active account from an already-hashed
// password. The wizard keeps only the hash in its draft between steps.
func (svc *Service) RegisterHashed(nu NewUser, hash []byte) (User, error) {
	now := time.Now().UTC()
	return svc.repo.CreateUser(User{
		Name:         nu.Name,
		Username:     nu.Username,
		Email:        nu.Email,
		Locale:       nu.Locale,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Authenticate verifies credentials and records the login time.
func (svc *Service) Authenticate(uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrAuthFailed
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthFailed
	}
	if !usr.IsActive {
		return User{}, ErrDeactivated
	}
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

// MakeOrganizer grants organizer rights to an existing account.
func (svc *Service) MakeOrganizer(email string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return User{}, err
	}
	if usr.IsOrganizer {
		return usr, nil
	}
	usr.IsOrganizer = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

// RequestPasswordReset emails a reset link to the account registered
// under email. Deactivated accounts are treated as not found.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	token, err := MakeToken(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		Locale:       usr.NotificationLocale(),
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword sets a new password for the account identified by the
// uid/token pair of a reset link. The token is single-use: it signs over
// the current password hash and last login, so it dies with the reset.
func (svc *Service) ResetPassword(rp ResetUserPassword) (User, error) {
	uid, err := DecodeUID(rp.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(uid)
	if err != nil {
		if err == ErrNotFound {
			return User{}, core.NewValidationError(errInvalidToken)
		}
		return User{}, err
	}
	if err := VerifyToken(usr, rp.Token); err != nil {
		if err == errInvalidToken || err == errTokenExpired {
			return User{}, core.NewValidationError(err)
		}
		return User{}, err
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) GetByID(id int) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) GetProfile(userID int, eventSlug string) (Profile, error) {
	return svc.repo.GetProfile(userID, eventSlug)
}

// SaveBiography upserts the speaker profile for an event.
func (svc *Service) SaveBiography(userID int, eventSlug, bio string) (Profile, error) {
	return svc.repo.UpsertProfile(Profile{
		UserID:    userID,
		EventSlug: eventSlug,
		Biography: bio,
		UpdatedAt: time.Now().UTC(),
	})
}
