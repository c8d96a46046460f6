package inmemdb

import (
	"sort"

	"github.com/eventyay/cfp/core/schedule"
)

var _ schedule.Repository = (*scheduleRepository)(nil)

type scheduleRepository struct {
	db *DB
}

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetWIPSchedule(eventSlug string) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	return *repo.wipSchedule(eventSlug), nil
}

// wipSchedule must be called with the write lock held.
func (repo *scheduleRepository) wipSchedule(eventSlug string) *schedule.Schedule {
	for _, sched := range repo.db.schedules {
		if sched.EventSlug == eventSlug && sched.IsWIP() {
			return sched
		}
	}
	repo.db.schedulePK++
	sched := &schedule.Schedule{ID: repo.db.schedulePK, EventSlug: eventSlug}
	repo.db.schedules[sched.ID] = sched
	return sched
}

func (repo *scheduleRepository) UpsertWIPSlot(eventSlug, submissionCode string, visible bool) (schedule.TalkSlot, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sched := repo.wipSchedule(eventSlug)
	for _, slot := range repo.db.slots {
		if slot.ScheduleID == sched.ID && slot.SubmissionCode == submissionCode {
			slot.IsVisible = visible
			return *slot, nil
		}
	}
	repo.db.slotPK++
	slot := &schedule.TalkSlot{
		ID:             repo.db.slotPK,
		ScheduleID:     sched.ID,
		SubmissionCode: submissionCode,
		IsVisible:      visible,
	}
	repo.db.slots[slot.ID] = slot
	return *slot, nil
}

func (repo *scheduleRepository) DeleteWIPSlots(eventSlug, submissionCode string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sched := repo.wipSchedule(eventSlug)
	for id, slot := range repo.db.slots {
		if slot.ScheduleID == sched.ID && slot.SubmissionCode == submissionCode {
			delete(repo.db.slots, id)
		}
	}
	return nil
}

func (repo *scheduleRepository) QueryWIPSlots(eventSlug string) ([]schedule.TalkSlot, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sched := repo.wipSchedule(eventSlug)
	slots := make([]schedule.TalkSlot, 0)
	for _, slot := range repo.db.slots {
		if slot.ScheduleID == sched.ID {
			slots = append(slots, *slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
	return slots, nil
}
