// Package inmemdb provides in-memory repositories used in development and
// as test fakes.
package inmemdb

import (
	"sync"

	"github.com/eventyay/cfp/core/cfp"
	"github.com/eventyay/cfp/core/schedule"
	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

type DB struct {
	mutex sync.RWMutex

	events map[string]*cfp.Event

	userPK    int
	users     map[int]*user.User
	profilePK int
	profiles  map[int]*user.Profile

	submissions map[string]*submission.Submission // by code
	speakers    map[string][]int                  // code -> user IDs
	questionPK  int
	questions   map[int]*submission.Question
	answerPK    int
	answers     map[int]*submission.Answer
	typePK      int
	types       map[int]*submission.SubmissionType
	trackPK     int
	tracks      map[int]*submission.Track

	schedulePK int
	schedules  map[int]*schedule.Schedule
	slotPK     int
	slots      map[int]*schedule.TalkSlot
}

func Open() *DB {
	return &DB{
		events:      make(map[string]*cfp.Event),
		users:       make(map[int]*user.User),
		profiles:    make(map[int]*user.Profile),
		submissions: make(map[string]*submission.Submission),
		speakers:    make(map[string][]int),
		questions:   make(map[int]*submission.Question),
		answers:     make(map[int]*submission.Answer),
		types:       make(map[int]*submission.SubmissionType),
		tracks:      make(map[int]*submission.Track),
		schedules:   make(map[int]*schedule.Schedule),
		slots:       make(map[int]*schedule.TalkSlot),
	}
}
