package inmemdb

import (
	"sort"
	"time"

	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

var _ submission.Repository = (*submissionRepository)(nil)

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(sub submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.submissions[sub.Code] = &sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByCode(code string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[code]; ok {
		out := *sub
		out.SpeakerIDs = append([]int(nil), repo.db.speakers[code]...)
		return out, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) QueryEventSubmissions(eventSlug string) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.submissions {
		if sub.EventSlug == eventSlug {
			out := *sub
			out.SpeakerIDs = append([]int(nil), repo.db.speakers[sub.Code]...)
			subs = append(subs, out)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

// SaveSubmission persists the named fields only and reports whether any
// of them actually changed.
func (repo *submissionRepository) SaveSubmission(sub submission.Submission, fields ...string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.submissions[sub.Code]
	if !ok {
		return false, submission.ErrNotFound
	}
	var changed bool
	for _, field := range fields {
		switch field {
		case "status":
			if orig.Status != sub.Status {
				orig.Status = sub.Status
				changed = true
			}
		case "title":
			if orig.Title != sub.Title {
				orig.Title = sub.Title
				changed = true
			}
		case "abstract":
			if orig.Abstract != sub.Abstract {
				orig.Abstract = sub.Abstract
				changed = true
			}
		case "description":
			if orig.Description != sub.Description {
				orig.Description = sub.Description
				changed = true
			}
		case "notes":
			if orig.Notes != sub.Notes {
				orig.Notes = sub.Notes
				changed = true
			}
		case "duration":
			if orig.Duration != sub.Duration {
				orig.Duration = sub.Duration
				changed = true
			}
		case "is_featured":
			if orig.IsFeatured != sub.IsFeatured {
				orig.IsFeatured = sub.IsFeatured
				changed = true
			}
		case "image_path":
			if orig.ImagePath != sub.ImagePath {
				orig.ImagePath = sub.ImagePath
				changed = true
			}
		case "recording_url":
			if orig.RecordingURL != sub.RecordingURL {
				orig.RecordingURL = sub.RecordingURL
				changed = true
			}
		case "updated_at":
			// bookkeeping; not a real change on its own
			if changed || orig.UpdatedAt.IsZero() {
				orig.UpdatedAt = sub.UpdatedAt
			}
		}
	}
	if changed {
		orig.UpdatedAt = sub.UpdatedAt
	}
	return changed, nil
}

func (repo *submissionRepository) CodeExists(code string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.submissions[code]
	return ok, nil
}

func (repo *submissionRepository) AddSpeaker(code string, userID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.submissions[code]; !ok {
		return submission.ErrNotFound
	}
	for _, id := range repo.db.speakers[code] {
		if id == userID {
			return nil
		}
	}
	repo.db.speakers[code] = append(repo.db.speakers[code], userID)
	return nil
}

func (repo *submissionRepository) GetSpeakers(code string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	speakers := make([]user.User, 0, len(repo.db.speakers[code]))
	for _, id := range repo.db.speakers[code] {
		if usr, ok := repo.db.users[id]; ok {
			speakers = append(speakers, *usr)
		}
	}
	return speakers, nil
}

func (repo *submissionRepository) QueryEventQuestions(eventSlug string) ([]submission.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]submission.Question, 0)
	for _, q := range repo.db.questions {
		if q.EventSlug == eventSlug {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions, nil
}

func (repo *submissionRepository) SaveAnswer(ans submission.Answer) (submission.Answer, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	for _, a := range repo.db.answers {
		if a.QuestionID == ans.QuestionID && a.SubmissionCode == ans.SubmissionCode && !a.Removed {
			a.Answer = ans.Answer
			a.UpdatedAt = now
			return *a, nil
		}
	}
	repo.db.answerPK++
	ans.ID = repo.db.answerPK
	ans.CreatedAt = now
	ans.UpdatedAt = now
	repo.db.answers[ans.ID] = &ans
	return ans, nil
}

func (repo *submissionRepository) QueryAnswers(code string) ([]submission.Answer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	answers := make([]submission.Answer, 0)
	for _, a := range repo.db.answers {
		if a.SubmissionCode == code {
			answers = append(answers, *a)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (repo *submissionRepository) RemoveAnswers(code string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	now := time.Now().UTC()
	for _, a := range repo.db.answers {
		if a.SubmissionCode == code && !a.Removed {
			a.Removed = true
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (repo *submissionRepository) QuerySubmissionTypes(eventSlug string) ([]submission.SubmissionType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	types := make([]submission.SubmissionType, 0)
	for _, st := range repo.db.types {
		if st.EventSlug == eventSlug {
			types = append(types, *st)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

func (repo *submissionRepository) GetSubmissionType(id int) (submission.SubmissionType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.types[id]; ok {
		return *st, nil
	}
	return submission.SubmissionType{}, submission.ErrNotFound
}

func (repo *submissionRepository) QueryTracks(eventSlug string) ([]submission.Track, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tracks := make([]submission.Track, 0)
	for _, t := range repo.db.tracks {
		if t.EventSlug == eventSlug {
			tracks = append(tracks, *t)
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks, nil
}

func (repo *submissionRepository) GetTrack(id int) (submission.Track, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tracks[id]; ok {
		return *t, nil
	}
	return submission.Track{}, submission.ErrNotFound
}

// test/seed helpers

func (repo *submissionRepository) SeedQuestion(q submission.Question) submission.Question {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.questionPK++
	q.ID = repo.db.questionPK
	repo.db.questions[q.ID] = &q
	return q
}

func (repo *submissionRepository) SeedSubmissionType(st submission.SubmissionType) submission.SubmissionType {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.typePK++
	st.ID = repo.db.typePK
	repo.db.types[st.ID] = &st
	return st
}

func (repo *submissionRepository) SeedTrack(t submission.Track) submission.Track {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.trackPK++
	t.ID = repo.db.trackPK
	repo.db.tracks[t.ID] = &t
	return t
}
