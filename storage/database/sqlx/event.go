package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/cfp"
)

var _ cfp.EventSource = (*eventSource)(nil)

type eventSource struct {
	db *sqlx.DB
}

func NewEventSource(db *sqlx.DB) *eventSource {
	return &eventSource{db: db}
}

func (src *eventSource) GetEvent(slug string) (cfp.Event, error) {
	event := cfp.Event{Slug: slug}
	var locales pq.StringArray
	var deadline sql.NullTime
	err := src.db.QueryRowx(
		`SELECT name, locales, cfp_deadline FROM event WHERE slug = $1`, slug,
	).Scan(&event.Name, &locales, &deadline)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfp.Event{}, cfp.ErrEventNotFound
		}
		return cfp.Event{}, errors.Wrap(err, "getting event")
	}
	event.Locales = locales
	if deadline.Valid {
		event.CfPDeadline = deadline.Time
	}
	return event, nil
}
