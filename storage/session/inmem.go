// Package session stores in-progress wizard drafts.
package session

import (
	"sync"

	"github.com/eventyay/cfp/core/cfp"
)

// InmemDraftStore keeps drafts in process memory. Good enough for a
// single instance; drafts are throwaway state.
type InmemDraftStore struct {
	mutex  sync.RWMutex
	drafts map[string]cfp.Draft
}

func NewInmemDraftStore() *InmemDraftStore {
	return &InmemDraftStore{drafts: make(map[string]cfp.Draft)}
}

func (store *InmemDraftStore) GetDraft(draftID string) (cfp.Draft, error) {
	store.mutex.RLock()
	draft, ok := store.drafts[draftID]
	store.mutex.RUnlock()
	if ok {
		return draft, nil
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	if draft, ok = store.drafts[draftID]; !ok {
		draft = cfp.NewDraft()
		store.drafts[draftID] = draft
	}
	return draft, nil
}

func (store *InmemDraftStore) PutStepData(draftID, step string, data map[string]interface{}) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	draft := store.draft(draftID)
	draft.Data[step] = data
	return nil
}

func (store *InmemDraftStore) PutStepInitial(draftID, step string, data map[string]interface{}) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	draft := store.draft(draftID)
	draft.Initial[step] = data
	return nil
}

func (store *InmemDraftStore) PutStepFiles(draftID, step string, files map[string]cfp.FileRef) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	draft := store.draft(draftID)
	draft.Files[step] = files
	return nil
}

func (store *InmemDraftStore) DeleteDraft(draftID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	delete(store.drafts, draftID)
	return nil
}

// draft must be called with the write lock held.
func (store *InmemDraftStore) draft(draftID string) cfp.Draft {
	draft, ok := store.drafts[draftID]
	if !ok {
		draft = cfp.NewDraft()
		store.drafts[draftID] = draft
	}
	return draft
}
