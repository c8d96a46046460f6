package cfp

import "io"

// FileRef points at a staged upload. Only the reference lives in the
// draft; the payload sits in the staging area so drafts stay small and
// serializable.
type FileRef struct {
	TmpName     string `json:"tmp_name"` // name within the staging area
	Name        string `json:"name"`     // original filename
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Charset     string `json:"charset"`
}

// Draft is the in-progress wizard state for one attempt id. Every step
// owns its own slice of each of the three maps, keyed by step identifier.
type Draft struct {
	Data    map[string]map[string]interface{} `json:"data"`
	Initial map[string]map[string]interface{} `json:"initial"`
	Files   map[string]map[string]FileRef     `json:"files"`
}

func NewDraft() Draft {
	return Draft{
		Data:    make(map[string]map[string]interface{}),
		Initial: make(map[string]map[string]interface{}),
		Files:   make(map[string]map[string]FileRef),
	}
}

func (d Draft) StepData(step string) map[string]interface{} {
	return d.Data[step]
}

func (d Draft) StepInitial(step string) map[string]interface{} {
	return d.Initial[step]
}

func (d Draft) StepFiles(step string) map[string]FileRef {
	return d.Files[step]
}

// DraftStore persists drafts keyed by attempt id. Step slices are written
// independently; concurrent writers to the same slice are last-write-wins.
type DraftStore interface {
	// GetDraft returns the draft for the attempt id, creating an empty one
	// lazily on first access.
	GetDraft(draftID string) (Draft, error)
	PutStepData(draftID, step string, data map[string]interface{}) error
	PutStepInitial(draftID, step string, data map[string]interface{}) error
	PutStepFiles(draftID, step string, files map[string]FileRef) error
	DeleteDraft(draftID string) error
}

// FileStager stages uploads on disk during the wizard and reopens them at
// finalization time.
type FileStager interface {
	Stage(name string, r io.Reader) (stagedName string, err error)
	Open(stagedName string) (io.ReadCloser, error)
	Remove(stagedName string) error
}
