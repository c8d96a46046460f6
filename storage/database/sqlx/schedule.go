package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetWIPSchedule(eventSlug string) (schedule.Schedule, error) {
	sched := schedule.Schedule{EventSlug: eventSlug}
	err := repo.db.QueryRowx(
		`SELECT id FROM schedule WHERE event_slug = $1 AND version = ''`, eventSlug,
	).Scan(&sched.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = repo.db.QueryRowx(
			`INSERT INTO schedule (event_slug, version) VALUES ($1, '') RETURNING id`, eventSlug,
		).Scan(&sched.ID)
	}
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting wip schedule")
	}
	return sched, nil
}

func (repo *scheduleRepository) UpsertWIPSlot(eventSlug, submissionCode string, visible bool) (schedule.TalkSlot, error) {
	sched, err := repo.GetWIPSchedule(eventSlug)
	if err != nil {
		return schedule.TalkSlot{}, err
	}
	slot := schedule.TalkSlot{
		ScheduleID:     sched.ID,
		SubmissionCode: submissionCode,
		IsVisible:      visible,
	}
	err = repo.db.QueryRowx(
		`INSERT INTO talk_slot (schedule_id, submission_code, is_visible)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (schedule_id, submission_code)
		 DO UPDATE SET is_visible = EXCLUDED.is_visible
		 RETURNING id`,
		sched.ID, submissionCode, visible,
	).Scan(&slot.ID)
	if err != nil {
		return schedule.TalkSlot{}, errors.Wrap(err, "upserting slot")
	}
	return slot, nil
}

func (repo *scheduleRepository) DeleteWIPSlots(eventSlug, submissionCode string) error {
	sched, err := repo.GetWIPSchedule(eventSlug)
	if err != nil {
		return err
	}
	_, err = repo.db.Exec(
		`DELETE FROM talk_slot WHERE schedule_id = $1 AND submission_code = $2`,
		sched.ID, submissionCode,
	)
	return errors.Wrap(err, "deleting slots")
}

func (repo *scheduleRepository) QueryWIPSlots(eventSlug string) ([]schedule.TalkSlot, error) {
	sched, err := repo.GetWIPSchedule(eventSlug)
	if err != nil {
		return nil, err
	}
	rows, err := repo.db.Queryx(
		`SELECT id, schedule_id, submission_code, COALESCE(room, ''),
			COALESCE(start_at, 'epoch'::timestamptz), COALESCE(end_at, 'epoch'::timestamptz),
			is_visible
		 FROM talk_slot WHERE schedule_id = $1 ORDER BY id`,
		sched.ID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	defer rows.Close()
	var slots []schedule.TalkSlot
	for rows.Next() {
		var slot schedule.TalkSlot
		err = rows.Scan(&slot.ID, &slot.ScheduleID, &slot.SubmissionCode,
			&slot.Room, &slot.Start, &slot.End, &slot.IsVisible)
		if err != nil {
			return nil, errors.Wrap(err, "scanning slot")
		}
		slots = append(slots, slot)
	}
	return slots, errors.Wrap(rows.Err(), "querying slots")
}
