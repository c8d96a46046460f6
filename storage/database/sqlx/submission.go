package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/eventyay/cfp/core/submission"
	"github.com/eventyay/cfp/core/user"
)

type submissionRow struct {
	Code             string    `db:"code"`
	EventSlug        string    `db:"event_slug"`
	Title            string    `db:"title"`
	Abstract         string    `db:"abstract"`
	Description      string    `db:"description"`
	Notes            string    `db:"notes"`
	Duration         int       `db:"duration"`
	ContentLocale    string    `db:"content_locale"`
	Status           string    `db:"status"`
	SubmissionTypeID int       `db:"submission_type_id"`
	TrackID          int       `db:"track_id"`
	ReviewToken      string    `db:"review_token"`
	InviteToken      string    `db:"invite_token"`
	IsFeatured       bool      `db:"is_featured"`
	DoNotRecord      bool      `db:"do_not_record"`
	ImagePath        string    `db:"image_path"`
	RecordingURL     string    `db:"recording_url"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (row submissionRow) toSubmission() submission.Submission {
	return submission.Submission{
		Code:             row.Code,
		EventSlug:        row.EventSlug,
		Title:            row.Title,
		Abstract:         row.Abstract,
		Description:      row.Description,
		Notes:            row.Notes,
		Duration:         row.Duration,
		ContentLocale:    row.ContentLocale,
		Status:           submission.Status(row.Status),
		SubmissionTypeID: row.SubmissionTypeID,
		TrackID:          row.TrackID,
		ReviewToken:      row.ReviewToken,
		InviteToken:      row.InviteToken,
		IsFeatured:       row.IsFeatured,
		DoNotRecord:      row.DoNotRecord,
		ImagePath:        row.ImagePath,
		RecordingURL:     row.RecordingURL,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

const submissionColumns = `code, event_slug, title, abstract, description, notes, duration,
	content_locale, status, submission_type_id, track_id, review_token, invite_token,
	is_featured, do_not_record, image_path, recording_url, created_at, updated_at`

// savableColumns gates SaveSubmission against arbitrary column names.
var savableColumns = map[string]func(sub submission.Submission) interface{}{
	"title":         func(sub submission.Submission) interface{} { return sub.Title },
	"abstract":      func(sub submission.Submission) interface{} { return sub.Abstract },
	"description":   func(sub submission.Submission) interface{} { return sub.Description },
	"notes":         func(sub submission.Submission) interface{} { return sub.Notes },
	"duration":      func(sub submission.Submission) interface{} { return sub.Duration },
	"status":        func(sub submission.Submission) interface{} { return string(sub.Status) },
	"is_featured":   func(sub submission.Submission) interface{} { return sub.IsFeatured },
	"image_path":    func(sub submission.Submission) interface{} { return sub.ImagePath },
	"recording_url": func(sub submission.Submission) interface{} { return sub.RecordingURL },
	"updated_at":    func(sub submission.Submission) interface{} { return sub.UpdatedAt },
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(sub submission.Submission) (submission.Submission, error) {
	_, err := repo.db.Exec(
		`INSERT INTO submission (`+submissionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		sub.Code, sub.EventSlug, sub.Title, sub.Abstract, sub.Description, sub.Notes, sub.Duration,
		sub.ContentLocale, string(sub.Status), sub.SubmissionTypeID, sub.TrackID, sub.ReviewToken,
		sub.InviteToken, sub.IsFeatured, sub.DoNotRecord, sub.ImagePath, sub.RecordingURL,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo *submissionRepository) GetSubmissionByCode(code string) (submission.Submission, error) {
	var row submissionRow
	err := repo.db.Get(&row, `SELECT `+submissionColumns+` FROM submission WHERE code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Submission{}, submission.ErrNotFound
		}
		return submission.Submission{}, errors.Wrap(err, "getting submission")
	}
	sub := row.toSubmission()

	var speakerIDs pq.Int64Array
	err = repo.db.Get(&speakerIDs,
		`SELECT COALESCE(ARRAY_AGG(user_id ORDER BY id), '{}')
		 FROM submission_speaker WHERE submission_code = $1`,
		code,
	)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "getting speakers")
	}
	sub.SpeakerIDs = fromInt64Array(speakerIDs)
	return sub, nil
}

func (repo *submissionRepository) QueryEventSubmissions(eventSlug string) ([]submission.Submission, error) {
	var rows []submissionRow
	err := repo.db.Select(&rows,
		`SELECT `+submissionColumns+` FROM submission
		 WHERE event_slug = $1 ORDER BY created_at`,
		eventSlug,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs, nil
}

func (repo *submissionRepository) SaveSubmission(sub submission.Submission, fields ...string) (bool, error) {
	assignments := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	changeGuards := make([]string, 0, len(fields))
	for _, field := range fields {
		value, ok := savableColumns[field]
		if !ok {
			return false, errors.Errorf("submission field %q is not savable", field)
		}
		args = append(args, value(sub))
		assignments = append(assignments, fmt.Sprintf("%s = $%d", field, len(args)))
		if field != "updated_at" {
			changeGuards = append(changeGuards, fmt.Sprintf("%s IS DISTINCT FROM $%d", field, len(args)))
		}
	}
	if len(changeGuards) == 0 {
		return false, nil
	}
	args = append(args, sub.Code)

	// the WHERE guard makes a same-value save touch no row, which is how a
	// no-op is detected
	query := fmt.Sprintf(
		`UPDATE submission SET %s WHERE code = $%d AND (%s)`,
		strings.Join(assignments, ", "), len(args), strings.Join(changeGuards, " OR "),
	)
	res, err := repo.db.Exec(query, args...)
	if err != nil {
		return false, errors.Wrap(err, "updating submission")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "checking update result")
	}
	if affected == 0 {
		exists, err := repo.CodeExists(sub.Code)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, submission.ErrNotFound
		}
	}
	return affected > 0, nil
}

func (repo *submissionRepository) CodeExists(code string) (bool, error) {
	var exists bool
	err := repo.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM submission WHERE code = $1)`, code)
	if err != nil {
		return false, errors.Wrap(err, "checking code")
	}
	return exists, nil
}

func (repo *submissionRepository) AddSpeaker(code string, userID int) error {
	_, err := repo.db.Exec(
		`INSERT INTO submission_speaker (submission_code, user_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		code, userID,
	)
	return errors.Wrap(err, "adding speaker")
}

func (repo *submissionRepository) GetSpeakers(code string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.Select(&rows,
		`SELECT u.id, u.name, u.username, u.email, u.locale, u.is_active, u.is_organizer,
			u.password_hash, u.created_at, u.updated_at, u.last_login
		 FROM "user" u
		 JOIN submission_speaker ss ON ss.user_id = u.id
		 WHERE ss.submission_code = $1
		 ORDER BY ss.id`,
		code,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying speakers")
	}
	speakers := make([]user.User, 0, len(rows))
	for _, row := range rows {
		speakers = append(speakers, row.toUser())
	}
	return speakers, nil
}

type questionRow struct {
	ID                int            `db:"id"`
	EventSlug         string         `db:"event_slug"`
	Variant           string         `db:"variant"`
	Question          string         `db:"question"`
	Help              string         `db:"help"`
	Required          bool           `db:"required"`
	Options           pq.StringArray `db:"options"`
	TrackIDs          pq.Int64Array  `db:"track_ids"`
	SubmissionTypeIDs pq.Int64Array  `db:"submission_type_ids"`
	Active            bool           `db:"active"`
	Position          int            `db:"position"`
}

func (repo *submissionRepository) QueryEventQuestions(eventSlug string) ([]submission.Question, error) {
	var rows []questionRow
	err := repo.db.Select(&rows,
		`SELECT id, event_slug, variant, question, help, required, options,
			track_ids, submission_type_ids, active, position
		 FROM question WHERE event_slug = $1 ORDER BY position, id`,
		eventSlug,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]submission.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, submission.Question{
			ID:                row.ID,
			EventSlug:         row.EventSlug,
			Variant:           submission.QuestionVariant(row.Variant),
			Question:          row.Question,
			Help:              row.Help,
			Required:          row.Required,
			Options:           row.Options,
			TrackIDs:          fromInt64Array(row.TrackIDs),
			SubmissionTypeIDs: fromInt64Array(row.SubmissionTypeIDs),
			Active:            row.Active,
			Position:          row.Position,
		})
	}
	return questions, nil
}

func (repo *submissionRepository) SaveAnswer(ans submission.Answer) (submission.Answer, error) {
	now := time.Now().UTC()
	err := repo.db.QueryRowx(
		`INSERT INTO answer (question_id, submission_code, answer, removed, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, $4, $4)
		 ON CONFLICT (question_id, submission_code)
		 DO UPDATE SET answer = EXCLUDED.answer, removed = FALSE, updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		ans.QuestionID, ans.SubmissionCode, ans.Answer, now,
	).Scan(&ans.ID, &ans.CreatedAt)
	if err != nil {
		return submission.Answer{}, errors.Wrap(err, "saving answer")
	}
	ans.Removed = false
	ans.UpdatedAt = now
	return ans, nil
}

func (repo *submissionRepository) QueryAnswers(code string) ([]submission.Answer, error) {
	var answers []submission.Answer
	rows, err := repo.db.Queryx(
		`SELECT id, question_id, submission_code, answer, removed, created_at, updated_at
		 FROM answer WHERE submission_code = $1 ORDER BY id`,
		code,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	defer rows.Close()
	for rows.Next() {
		var ans submission.Answer
		err = rows.Scan(&ans.ID, &ans.QuestionID, &ans.SubmissionCode, &ans.Answer,
			&ans.Removed, &ans.CreatedAt, &ans.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning answer")
		}
		answers = append(answers, ans)
	}
	return answers, errors.Wrap(rows.Err(), "querying answers")
}

func (repo *submissionRepository) RemoveAnswers(code string) (int, error) {
	res, err := repo.db.Exec(
		`UPDATE answer SET removed = TRUE, updated_at = $1
		 WHERE submission_code = $2 AND NOT removed`,
		time.Now().UTC(), code,
	)
	if err != nil {
		return 0, errors.Wrap(err, "removing answers")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "checking removed answers")
	}
	return int(affected), nil
}

func (repo *submissionRepository) QuerySubmissionTypes(eventSlug string) ([]submission.SubmissionType, error) {
	rows, err := repo.db.Queryx(
		`SELECT id, event_slug, name, default_duration
		 FROM submission_type WHERE event_slug = $1 ORDER BY id`,
		eventSlug,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying submission types")
	}
	defer rows.Close()
	var types []submission.SubmissionType
	for rows.Next() {
		var st submission.SubmissionType
		if err = rows.Scan(&st.ID, &st.EventSlug, &st.Name, &st.DefaultDuration); err != nil {
			return nil, errors.Wrap(err, "scanning submission type")
		}
		types = append(types, st)
	}
	return types, errors.Wrap(rows.Err(), "querying submission types")
}

func (repo *submissionRepository) GetSubmissionType(id int) (submission.SubmissionType, error) {
	var st submission.SubmissionType
	err := repo.db.QueryRowx(
		`SELECT id, event_slug, name, default_duration FROM submission_type WHERE id = $1`, id,
	).Scan(&st.ID, &st.EventSlug, &st.Name, &st.DefaultDuration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.SubmissionType{}, submission.ErrNotFound
		}
		return submission.SubmissionType{}, errors.Wrap(err, "getting submission type")
	}
	return st, nil
}

func (repo *submissionRepository) QueryTracks(eventSlug string) ([]submission.Track, error) {
	rows, err := repo.db.Queryx(
		`SELECT id, event_slug, name, description
		 FROM track WHERE event_slug = $1 ORDER BY id`,
		eventSlug,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}
	defer rows.Close()
	var tracks []submission.Track
	for rows.Next() {
		var track submission.Track
		if err = rows.Scan(&track.ID, &track.EventSlug, &track.Name, &track.Description); err != nil {
			return nil, errors.Wrap(err, "scanning track")
		}
		tracks = append(tracks, track)
	}
	return tracks, errors.Wrap(rows.Err(), "querying tracks")
}

func (repo *submissionRepository) GetTrack(id int) (submission.Track, error) {
	var track submission.Track
	err := repo.db.QueryRowx(
		`SELECT id, event_slug, name, description FROM track WHERE id = $1`, id,
	).Scan(&track.ID, &track.EventSlug, &track.Name, &track.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return submission.Track{}, submission.ErrNotFound
		}
		return submission.Track{}, errors.Wrap(err, "getting track")
	}
	return track, nil
}
