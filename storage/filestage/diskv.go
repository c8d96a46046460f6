// Package filestage keeps wizard uploads on disk until the draft they
// belong to is finalized or abandoned.
package filestage

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"
	"github.com/pkg/errors"
)

func flatTransform(s string) []string { return []string{} }

type Stager struct {
	kv *diskv.Diskv
}

func New(basePath string) *Stager {
	return &Stager{
		kv: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		}),
	}
}

// Stage copies the upload into the staging area under a fresh name. The
// original filename only contributes its extension; the rest is replaced
// so uploads can never collide or escape the staging directory.
func (s *Stager) Stage(name string, r io.Reader) (string, error) {
	stagedName := uuid.New().String() + filepath.Ext(name)
	if err := s.kv.WriteStream(stagedName, r, true); err != nil {
		return "", errors.Wrap(err, "staging upload")
	}
	return stagedName, nil
}

func (s *Stager) Open(stagedName string) (io.ReadCloser, error) {
	rc, err := s.kv.ReadStream(stagedName, false)
	if err != nil {
		return nil, errors.Wrapf(err, "opening staged upload %s", stagedName)
	}
	return rc, nil
}

func (s *Stager) Remove(stagedName string) error {
	return errors.Wrapf(s.kv.Erase(stagedName), "removing staged upload %s", stagedName)
}
