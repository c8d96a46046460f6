package cfp

import (
	"fmt"
	"strconv"

	"github.com/eventyay/cfp/core"
	"github.com/eventyay/cfp/core/submission"
)

// questionsStep renders the organizer-configured custom questions. It
// vanishes entirely when no question applies to the chosen track and
// session type.
type questionsStep struct {
	baseStep
}

func newQuestionsStep(deps *Deps) *questionsStep {
	return &questionsStep{baseStep{
		identifier: "questions",
		label:      "Questions",
		icon:       "question-circle",
		priority:   25,
		deps:       deps,
	}}
}

func questionFieldName(q submission.Question) string {
	return fmt.Sprintf("question_%d", q.ID)
}

func questionWidget(q submission.Question) string {
	switch q.Variant {
	case submission.QuestionNumber:
		return "number"
	case submission.QuestionBoolean:
		return "checkbox"
	case submission.QuestionChoice:
		return "select"
	default:
		return "textarea"
	}
}

func questionField(q submission.Question) FieldMeta {
	return FieldMeta{
		Name:     questionFieldName(q),
		Label:    q.Question,
		Help:     q.Help,
		Required: q.Required,
		Widget:   questionWidget(q),
	}
}

// applicableQuestions filters the event's questions down to those matching
// the track and session type picked on the info step.
func (s *questionsStep) applicableQuestions(r *Request) ([]submission.Question, error) {
	questions, err := s.deps.Submissions.EventQuestions(r.Event.Slug)
	if err != nil {
		return nil, err
	}
	var trackID, typeID int
	if info := s.infoData(r); info != nil {
		trackID = draftInt(info["track"])
		typeID = draftInt(info["submission_type"])
	}
	applicable := make([]submission.Question, 0, len(questions))
	for _, q := range questions {
		if q.AppliesTo(trackID, typeID) {
			applicable = append(applicable, q)
		}
	}
	return applicable, nil
}

func (s *questionsStep) infoData(r *Request) map[string]interface{} {
	d, err := s.draft(r)
	if err != nil {
		return nil
	}
	return d.StepData("info")
}

func draftInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func (s *questionsStep) IsApplicable(r *Request) bool {
	questions, err := s.applicableQuestions(r)
	if err != nil {
		s.deps.Logger.Warn("cfp: loading questions for "+r.Event.Slug, err)
		return false
	}
	return len(questions) > 0
}

func (s *questionsStep) Render(r *Request) (*StepView, error) {
	questions, err := s.applicableQuestions(r)
	if err != nil {
		return nil, err
	}
	fields := make([]FieldMeta, 0, len(questions))
	for _, q := range questions {
		fields = append(fields, questionField(q))
	}
	return s.view(r, fields), nil
}

// validate checks submitted (or reconstructed) answers against the
// applicable questions.
func (s *questionsStep) validate(questions []submission.Question, get func(name string) (string, bool)) (map[string]interface{}, []core.FieldError) {
	data := make(map[string]interface{}, len(questions))
	var fldErrs []core.FieldError
	for _, q := range questions {
		name := questionFieldName(q)
		val, present := get(name)
		if !present || val == "" {
			if q.Required {
				fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "this field is required"})
			}
			continue
		}
		switch q.Variant {
		case submission.QuestionNumber:
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "a number is required"})
				continue
			}
		case submission.QuestionBoolean:
			if _, err := strconv.ParseBool(val); err != nil && val != "on" {
				fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "a yes/no value is required"})
				continue
			}
		case submission.QuestionChoice:
			var found bool
			for _, opt := range q.Options {
				if opt == val {
					found = true
					break
				}
			}
			if !found {
				fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "choose one of the offered options"})
				continue
			}
		}
		data[name] = val
	}
	return data, fldErrs
}

func (s *questionsStep) Post(r *Request) error {
	questions, err := s.applicableQuestions(r)
	if err != nil {
		return err
	}
	data, fldErrs := s.validate(questions, func(name string) (string, bool) {
		vs, ok := r.Form[name]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	})
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return s.saveData(r, SerializeMap(data))
}

func (s *questionsStep) IsCompleted(r *Request) bool {
	questions, err := s.applicableQuestions(r)
	if err != nil {
		return false
	}
	stored := s.stepData(r)
	_, fldErrs := s.validate(questions, func(name string) (string, bool) {
		v, ok := stored[name]
		if !ok || v == nil {
			return "", false
		}
		return stringify(v), true
	})
	return len(fldErrs) == 0
}

func (s *questionsStep) Done(r *Request) error {
	if r.Submission == nil {
		return nil
	}
	questions, err := s.applicableQuestions(r)
	if err != nil {
		return err
	}
	stored := s.stepData(r)
	for _, q := range questions {
		v, ok := stored[questionFieldName(q)]
		if !ok || v == nil {
			continue
		}
		_, err := s.deps.Submissions.SaveAnswer(submission.Answer{
			QuestionID:     q.ID,
			SubmissionCode: r.Submission.Code,
			Answer:         stringify(v),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Describe lists every active question; without a request there is no
// track or session type to filter on.
func (s *questionsStep) Describe(event Event) StepDescription {
	desc := StepDescription{
		Identifier: s.identifier,
		Label:      s.label,
		Icon:       s.icon,
		Priority:   s.priority,
	}
	questions, err := s.deps.Submissions.EventQuestions(event.Slug)
	if err != nil {
		s.deps.Logger.Warn("cfp: describing questions for "+event.Slug, err)
		return desc
	}
	for _, q := range questions {
		if q.Active {
			desc.Fields = append(desc.Fields, questionField(q))
		}
	}
	return desc
}
