package inmemdb

import "github.com/eventyay/cfp/core/cfp"

var _ cfp.EventSource = (*eventSource)(nil)

type eventSource struct {
	db *DB
}

func NewEventSource(db *DB) *eventSource {
	return &eventSource{db: db}
}

func (src *eventSource) GetEvent(slug string) (cfp.Event, error) {
	src.db.mutex.RLock()
	defer src.db.mutex.RUnlock()

	if event, ok := src.db.events[slug]; ok {
		return *event, nil
	}
	return cfp.Event{}, cfp.ErrEventNotFound
}

func (src *eventSource) SeedEvent(event cfp.Event) {
	src.db.mutex.Lock()
	defer src.db.mutex.Unlock()

	src.db.events[event.Slug] = &event
}
