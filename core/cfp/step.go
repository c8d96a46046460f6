package cfp

// StepView is what a GET on a wizard step renders: the form schema plus
// whatever the visitor already stored.
type StepView struct {
	Identifier string                 `json:"identifier"`
	Label      string                 `json:"label"`
	Icon       string                 `json:"icon"`
	Fields     []FieldMeta            `json:"fields"`
	Data       map[string]interface{} `json:"data"`
	Files      map[string]FileRef     `json:"files,omitempty"`
}

// StepDescription is the read-only reflection of a step for the CfP
// configuration editor. It is computed without any live request.
type StepDescription struct {
	Identifier string      `json:"identifier"`
	Label      string      `json:"label"`
	Icon       string      `json:"icon"`
	Priority   int         `json:"priority"`
	Fields     []FieldMeta `json:"fields"`
}

// Step is one stage of the submission wizard. Steps are stateless; all
// per-visitor state lives in the draft store.
type Step interface {
	Identifier() string
	Label() string
	Icon() string
	// Priority orders steps ascending; ties keep insertion order.
	Priority() int
	// IsApplicable decides whether the step participates for this request.
	IsApplicable(r *Request) bool
	// IsCompleted reconstructs the step's form from stored draft data and
	// checks validity without re-rendering.
	IsCompleted(r *Request) bool
	Render(r *Request) (*StepView, error)
	// Post validates submitted input and stores it into the draft. A
	// *core.ValidationError return re-renders the step; any other error is
	// a server fault.
	Post(r *Request) error
	// Done materializes the step's draft slice into domain objects. Only
	// ever called on the happy path, in step order.
	Done(r *Request) error
	// Describe tolerates the absence of a request entirely.
	Describe(event Event) StepDescription
}

type baseStep struct {
	identifier string
	label      string
	icon       string
	priority   int
	deps       *Deps
}

func (s *baseStep) Identifier() string { return s.identifier }
func (s *baseStep) Label() string      { return s.label }
func (s *baseStep) Icon() string       { return s.icon }
func (s *baseStep) Priority() int      { return s.priority }

func (s *baseStep) draft(r *Request) (Draft, error) {
	return s.deps.Store.GetDraft(r.DraftID)
}

func (s *baseStep) stepData(r *Request) map[string]interface{} {
	d, err := s.draft(r)
	if err != nil {
		s.deps.Logger.Warn("cfp: reading draft "+r.DraftID, err)
		return nil
	}
	return d.StepData(s.identifier)
}

func (s *baseStep) saveData(r *Request, data map[string]interface{}) error {
	return s.deps.Store.PutStepData(r.DraftID, s.identifier, data)
}

func (s *baseStep) view(r *Request, fields []FieldMeta) *StepView {
	d, _ := s.draft(r)
	data := make(map[string]interface{})
	for k, v := range d.StepInitial(s.identifier) {
		data[k] = v
	}
	for k, v := range d.StepData(s.identifier) {
		data[k] = v
	}
	return &StepView{
		Identifier: s.identifier,
		Label:      s.label,
		Icon:       s.icon,
		Fields:     fields,
		Data:       data,
		Files:      d.StepFiles(s.identifier),
	}
}
