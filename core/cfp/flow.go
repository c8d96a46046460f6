package cfp

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var ErrUnknownStep = errors.New("unknown wizard step")

// StepFactory builds an extension-contributed step for an event.
type StepFactory func(event Event, deps *Deps) Step

// StepRegistry collects wizard steps contributed by plugin code. It is an
// explicit object constructed at startup and passed by reference; steps
// registered for a specific event only appear in that event's flow.
// Zero registrations is fine.
type StepRegistry struct {
	mu       sync.RWMutex
	global   []StepFactory
	perEvent map[string][]StepFactory
}

func NewStepRegistry() *StepRegistry {
	return &StepRegistry{perEvent: make(map[string][]StepFactory)}
}

// Register contributes a step to every event's flow.
func (reg *StepRegistry) Register(f StepFactory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.global = append(reg.global, f)
}

// RegisterForEvent contributes a step to one event's flow.
func (reg *StepRegistry) RegisterForEvent(eventSlug string, f StepFactory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.perEvent[eventSlug] = append(reg.perEvent[eventSlug], f)
}

// StepsFor instantiates contributed steps in registration order.
func (reg *StepRegistry) StepsFor(event Event, deps *Deps) []Step {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	steps := make([]Step, 0, len(reg.global)+len(reg.perEvent[event.Slug]))
	for _, f := range reg.global {
		steps = append(steps, f(event, deps))
	}
	for _, f := range reg.perEvent[event.Slug] {
		steps = append(steps, f(event, deps))
	}
	return steps
}

// Flow owns the ordered step pipeline for one event's CfP. The step slice
// is immutable after construction; next/previous applicable steps are
// computed by scanning from the current index.
type Flow struct {
	event Event
	deps  *Deps
	steps []Step
}

// NewFlow assembles the base steps, extends them with registry
// contributions, and stable-sorts everything by ascending priority so
// ties keep insertion order (contributed steps sort after base steps of
// equal priority).
func NewFlow(event Event, deps *Deps, registry *StepRegistry) *Flow {
	steps := []Step{
		newInfoStep(deps),
		newQuestionsStep(deps),
		newUserStep(deps),
		newProfileStep(deps),
	}
	if registry != nil {
		steps = append(steps, registry.StepsFor(event, deps)...)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Priority() < steps[j].Priority() })
	return &Flow{event: event, deps: deps, steps: steps}
}

func (f *Flow) Event() Event  { return f.event }
func (f *Flow) Steps() []Step { return f.steps }

func (f *Flow) StepByIdentifier(id string) (Step, error) {
	for _, s := range f.steps {
		if s.Identifier() == id {
			return s, nil
		}
	}
	return nil, errors.Wrap(ErrUnknownStep, id)
}

func (f *Flow) indexOf(step Step) int {
	for i, s := range f.steps {
		if s.Identifier() == step.Identifier() {
			return i
		}
	}
	return -1
}

// FirstApplicable returns the entry step for this request, or nil when no
// step applies.
func (f *Flow) FirstApplicable(r *Request) Step {
	for _, s := range f.steps {
		if s.IsApplicable(r) {
			return s
		}
	}
	return nil
}

// NextApplicable walks forward from the given step, skipping inapplicable
// ones; nil at the end of the pipeline.
func (f *Flow) NextApplicable(r *Request, from Step) Step {
	idx := f.indexOf(from)
	if idx < 0 {
		return nil
	}
	for i := idx + 1; i < len(f.steps); i++ {
		if f.steps[i].IsApplicable(r) {
			return f.steps[i]
		}
	}
	return nil
}

// PrevApplicable walks backward; nil at the start of the pipeline.
func (f *Flow) PrevApplicable(r *Request, from Step) Step {
	idx := f.indexOf(from)
	if idx < 0 {
		return nil
	}
	for i := idx - 1; i >= 0; i-- {
		if f.steps[i].IsApplicable(r) {
			return f.steps[i]
		}
	}
	return nil
}

// FirstIncomplete guards against visitors skipping ahead: it returns the
// earliest applicable step before upTo whose stored draft data does not
// validate, or nil when the path so far is complete.
func (f *Flow) FirstIncomplete(r *Request, upTo Step) Step {
	limit := len(f.steps)
	if upTo != nil {
		if idx := f.indexOf(upTo); idx >= 0 {
			limit = idx
		}
	}
	for i := 0; i < limit; i++ {
		s := f.steps[i]
		if s.IsApplicable(r) && !s.IsCompleted(r) {
			return s
		}
	}
	return nil
}

// Finalize runs once, after the last applicable step's Post succeeded. It
// calls every applicable step's Done in step order, then discards the
// draft. Warnings accumulated by steps (best-effort side effects that
// failed) are returned alongside; they do not fail the wizard.
func (f *Flow) Finalize(r *Request) ([]string, error) {
	if incomplete := f.FirstIncomplete(r, nil); incomplete != nil {
		return nil, errors.Errorf("cfp: step %q is not completed", incomplete.Identifier())
	}
	for _, s := range f.steps {
		if !s.IsApplicable(r) {
			continue
		}
		if err := s.Done(r); err != nil {
			return r.Warnings, errors.Wrap(err, fmt.Sprintf("cfp: finalizing step %q", s.Identifier()))
		}
	}
	if err := f.deps.Store.DeleteDraft(r.DraftID); err != nil {
		f.deps.Logger.Warn("cfp: discarding draft "+r.DraftID, err)
	}
	return r.Warnings, nil
}

// Describe reflects every step's configuration metadata for the CfP
// editor. No request is involved.
func (f *Flow) Describe() []StepDescription {
	descs := make([]StepDescription, 0, len(f.steps))
	for _, s := range f.steps {
		descs = append(descs, s.Describe(f.event))
	}
	return descs
}
