package session

import (
	"encoding/json"

	"github.com/peterbourgon/diskv/v3"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/cfp"
)

// DiskvDraftStore persists drafts as JSON blobs so they survive restarts.
// Values round-trip through JSON, so numbers come back as float64; form
// rebinding accounts for that.
type DiskvDraftStore struct {
	kv *diskv.Diskv
}

func NewDiskvDraftStore(basePath string) *DiskvDraftStore {
	return &DiskvDraftStore{
		kv: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(s string) []string { return []string{} },
			CacheSizeMax: 1024 * 1024,
		}),
	}
}

func (store *DiskvDraftStore) GetDraft(draftID string) (cfp.Draft, error) {
	if !store.kv.Has(draftID) {
		return cfp.NewDraft(), nil
	}
	raw, err := store.kv.Read(draftID)
	if err != nil {
		return cfp.Draft{}, errors.Wrap(err, "reading draft")
	}
	var draft cfp.Draft
	if err = json.Unmarshal(raw, &draft); err != nil {
		return cfp.Draft{}, errors.Wrap(err, "decoding draft")
	}
	if draft.Data == nil {
		draft.Data = make(map[string]map[string]interface{})
	}
	if draft.Initial == nil {
		draft.Initial = make(map[string]map[string]interface{})
	}
	if draft.Files == nil {
		draft.Files = make(map[string]map[string]cfp.FileRef)
	}
	return draft, nil
}

func (store *DiskvDraftStore) PutStepData(draftID, step string, data map[string]interface{}) error {
	return store.update(draftID, func(draft *cfp.Draft) { draft.Data[step] = data })
}

func (store *DiskvDraftStore) PutStepInitial(draftID, step string, data map[string]interface{}) error {
	return store.update(draftID, func(draft *cfp.Draft) { draft.Initial[step] = data })
}

func (store *DiskvDraftStore) PutStepFiles(draftID, step string, files map[string]cfp.FileRef) error {
	return store.update(draftID, func(draft *cfp.Draft) { draft.Files[step] = files })
}

func (store *DiskvDraftStore) DeleteDraft(draftID string) error {
	if !store.kv.Has(draftID) {
		return nil
	}
	return errors.Wrap(store.kv.Erase(draftID), "deleting draft")
}

func (store *DiskvDraftStore) update(draftID string, mutate func(*cfp.Draft)) error {
	draft, err := store.GetDraft(draftID)
	if err != nil {
		return err
	}
	mutate(&draft)
	raw, err := json.Marshal(draft)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	return errors.Wrap(store.kv.Write(draftID, raw), "writing draft")
}
