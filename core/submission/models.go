package submission

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core"
)

// codeAlphabet leaves out characters easily confused when read aloud or
// retyped (0/O, 1/I, 2/Z, 4/A, 5/S, 6/G).
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ3789"
	codeLength   = 6
	tokenLength  = 32
)

type Submission struct {
	Code             string    `json:"code"` // immutable once assigned
	EventSlug        string    `json:"event_slug"`
	Title            string    `json:"title"`
	Abstract         string    `json:"abstract"`
	Description      string    `json:"description"`
	Notes            string    `json:"notes"`    // organizer-only
	Duration         int       `json:"duration"` // minutes; 0 = submission type default
	ContentLocale    string    `json:"content_locale"`
	Status           Status    `json:"status"`
	SubmissionTypeID int       `json:"submission_type_id"`
	TrackID          int       `json:"track_id"` // 0 = no track
	SpeakerIDs       []int     `json:"speaker_ids"`
	ReviewToken      string    `json:"-"`
	InviteToken      string    `json:"-"`
	IsFeatured       bool      `json:"is_featured"`
	DoNotRecord      bool      `json:"do_not_record"`
	ImagePath        string    `json:"image_path"`
	RecordingURL     string    `json:"recording_url"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// EffectiveDuration falls back to the submission type's default.
func (s *Submission) EffectiveDuration(st SubmissionType) int {
	if s.Duration > 0 {
		return s.Duration
	}
	return st.DefaultDuration
}

type SubmissionType struct {
	ID              int    `json:"id"`
	EventSlug       string `json:"event_slug"`
	Name            string `json:"name"`
	DefaultDuration int    `json:"default_duration"` // minutes
}

// PK marks SubmissionType as reference-serializable in wizard drafts.
func (st SubmissionType) PK() interface{} { return st.ID }

type Track struct {
	ID          int    `json:"id"`
	EventSlug   string `json:"event_slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (t Track) PK() interface{} { return t.ID }

// QuestionVariant is the input kind of a custom CfP question.
type QuestionVariant string

const (
	QuestionText    QuestionVariant = "text"
	QuestionNumber  QuestionVariant = "number"
	QuestionBoolean QuestionVariant = "boolean"
	QuestionChoice  QuestionVariant = "choice"
)

// Question is an organizer-configured extra field of the submission form.
type Question struct {
	ID                int             `json:"id"`
	EventSlug         string          `json:"event_slug"`
	Variant           QuestionVariant `json:"variant"`
	Question          string          `json:"question"`
	Help              string          `json:"help"`
	Required          bool            `json:"required"`
	Options           []string        `json:"options"` // choice variant only
	TrackIDs          []int           `json:"track_ids"` // empty = all tracks
	SubmissionTypeIDs []int           `json:"submission_type_ids"` // empty = all types
	Active            bool            `json:"active"`
	Position          int             `json:"position"`
}

// AppliesTo decides whether the question is asked for the given track and
// submission type choice.
func (q Question) AppliesTo(trackID, submissionTypeID int) bool {
	if !q.Active {
		return false
	}
	if len(q.TrackIDs) > 0 && !containsInt(q.TrackIDs, trackID) {
		return false
	}
	if len(q.SubmissionTypeIDs) > 0 && !containsInt(q.SubmissionTypeIDs, submissionTypeID) {
		return false
	}
	return true
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Answer is a speaker's reply to a custom Question.
type Answer struct {
	ID             int       `json:"id"`
	QuestionID     int       `json:"question_id"`
	SubmissionCode string    `json:"submission_code"`
	Answer         string    `json:"answer"`
	Removed        bool      `json:"removed"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// NewSubmission contains the information needed to create a Submission.
type NewSubmission struct {
	EventSlug        string `json:"event_slug" validate:"required"`
	Title            string `json:"title" validate:"required"`
	Abstract         string `json:"abstract" validate:"required"`
	Description      string `json:"description"`
	Notes            string `json:"notes"`
	Duration         int    `json:"duration" validate:"omitempty,min=5,max=480"`
	ContentLocale    string `json:"content_locale" validate:"omitempty,locale_"`
	SubmissionTypeID int    `json:"submission_type_id" validate:"required"`
	TrackID          int    `json:"track_id"`
	DoNotRecord      bool   `json:"do_not_record"`
	ImagePath        string `json:"image_path"`
}

func (ns *NewSubmission) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Abstract = core.CleanString(ns.Abstract)
	ns.Description = core.CleanString(ns.Description)
	if err := core.Validate.Struct(ns); err != nil {
		return core.TranslateValidationErrors(err)
	}
	return nil
}

func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "submission.randomString")
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
