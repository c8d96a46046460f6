package schedule

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("schedule not found")

// Schedule is one version of an event's agenda. The unreleased
// work-in-progress version has an empty Version.
type Schedule struct {
	ID         int       `json:"id"`
	EventSlug  string    `json:"event_slug"`
	Version    string    `json:"version"` // "" = WIP
	ReleasedAt time.Time `json:"released_at"`
}

func (s Schedule) IsWIP() bool { return s.Version == "" }

// TalkSlot is a scheduled occurrence of a submission within one schedule
// version.
type TalkSlot struct {
	ID             int       `json:"id"`
	ScheduleID     int       `json:"schedule_id"`
	SubmissionCode string    `json:"submission_code"`
	Room           string    `json:"room"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	IsVisible      bool      `json:"is_visible"`
}

type Repository interface {
	// GetWIPSchedule returns the event's unreleased schedule, creating it
	// lazily.
	GetWIPSchedule(eventSlug string) (Schedule, error)
	UpsertWIPSlot(eventSlug, submissionCode string, visible bool) (TalkSlot, error)
	DeleteWIPSlots(eventSlug, submissionCode string) error
	QueryWIPSlots(eventSlug string) ([]TalkSlot, error)
}
