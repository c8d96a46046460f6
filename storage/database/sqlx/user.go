package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/user"
)

type userRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Locale       string    `db:"locale"`
	IsActive     bool      `db:"is_active"`
	IsOrganizer  bool      `db:"is_organizer"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    time.Time `db:"last_login"`
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		Locale:       row.Locale,
		IsActive:     row.IsActive,
		IsOrganizer:  row.IsOrganizer,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin,
	}
}

const userColumns = `id, name, username, email, locale, is_active, is_organizer,
	password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	excluded := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	var count int
	err := repo.db.Get(&count,
		`SELECT COUNT(*) FROM "user"
		 WHERE username <> '' AND username = $1 AND NOT (id = ANY($2))`,
		username, intArray(excluded),
	)
	if err != nil {
		return errors.Wrap(err, "counting usernames")
	}
	if count > 0 {
		return user.ErrUsernameExists
	}

	err = repo.db.Get(&count,
		`SELECT COUNT(*) FROM "user" WHERE email = $1 AND NOT (id = ANY($2))`,
		email, intArray(excluded),
	)
	if err != nil {
		return errors.Wrap(err, "counting emails")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	err := repo.db.Get(&usr.ID,
		`INSERT INTO "user" (name, username, email, locale, is_active, is_organizer,
			password_hash, created_at, updated_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		usr.Name, usr.Username, usr.Email, usr.Locale, usr.IsActive, usr.IsOrganizer,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	var row userRow
	err := repo.db.Get(&row, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by id")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	var row userRow
	err := repo.db.Get(&row, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	var row userRow
	err := repo.db.Get(&row,
		`SELECT `+userColumns+` FROM "user"
		 WHERE (username <> '' AND username = $1) OR email = $1`,
		username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by username or email")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	_, err := repo.db.Exec(
		`UPDATE "user"
		 SET name = $1, username = $2, email = $3, locale = $4, is_active = $5,
			 is_organizer = $6, password_hash = $7, updated_at = $8, last_login = $9
		 WHERE id = $10`,
		usr.Name, usr.Username, usr.Email, usr.Locale, usr.IsActive,
		usr.IsOrganizer, usr.PasswordHash, usr.UpdatedAt, usr.LastLogin, usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) GetProfile(userID int, eventSlug string) (user.Profile, error) {
	var profile user.Profile
	err := repo.db.QueryRowx(
		`SELECT id, user_id, event_slug, biography, updated_at
		 FROM profile WHERE user_id = $1 AND event_slug = $2`,
		userID, eventSlug,
	).Scan(&profile.ID, &profile.UserID, &profile.EventSlug, &profile.Biography, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.Profile{}, user.ErrNotFound
		}
		return user.Profile{}, errors.Wrap(err, "getting profile")
	}
	return profile, nil
}

func (repo *userRepository) UpsertProfile(profile user.Profile) (user.Profile, error) {
	err := repo.db.Get(&profile.ID,
		`INSERT INTO profile (user_id, event_slug, biography, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, event_slug)
		 DO UPDATE SET biography = EXCLUDED.biography, updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		profile.UserID, profile.EventSlug, profile.Biography, profile.UpdatedAt,
	)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "upserting profile")
	}
	return profile, nil
}
