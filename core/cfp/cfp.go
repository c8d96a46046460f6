// Package cfp implements the multi-step Call-for-Proposals submission
// wizard: an ordered pipeline of conditionally applicable steps backed by
// per-attempt draft storage.
package cfp

import (
	"errors"
	"io"
	"time"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

// Event is the CfP configuration a Flow is built for.
type Event struct {
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Locales     []string  `json:"locales"`
	CfPDeadline time.Time `json:"cfp_deadline"` // zero = always open
}

func (e Event) IsOpen(now time.Time) bool {
	return e.CfPDeadline.IsZero() || now.Before(e.CfPDeadline)
}

var ErrEventNotFound = errors.New("event not found")

// EventSource resolves the event slug of an incoming wizard request.
type EventSource interface {
	GetEvent(slug string) (Event, error)
}

// UploadedFile is a file submitted with a POST, not yet staged.
type UploadedFile struct {
	Name        string
	ContentType string
	Size        int64
	Charset     string
	Content     io.Reader
}

// Request carries everything a step may use for one wizard round trip.
// The draft store is addressed through the explicit DraftID instead of an
// ambient HTTP session.
type Request struct {
	Event   Event
	DraftID string
	User    *user.User // nil for anonymous visitors
	Form    map[string][]string
	Files   map[string]UploadedFile

	// finalization context, populated while Done handlers run
	Submission *submission.Submission
	Warnings   []string
}

func (r *Request) FormValue(name string) string {
	if vs := r.Form[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (r *Request) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Deps bundles the collaborators the built-in steps work against.
type Deps struct {
	Submissions *submission.Service
	Users       *user.Service
	Store       DraftStore
	Stager      FileStager
	Mailer      core.EmailService
	Logger      core.Logger
}
