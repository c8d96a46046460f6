package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusSubmitted: {StatusAccepted, StatusRejected, StatusWithdrawn},
		StatusAccepted:  {StatusConfirmed, StatusCanceled, StatusRejected, StatusSubmitted},
		StatusRejected:  {StatusAccepted, StatusSubmitted},
		StatusConfirmed: {StatusAccepted, StatusCanceled},
		StatusCanceled:  {StatusAccepted, StatusConfirmed},
		StatusWithdrawn: {StatusSubmitted},
		StatusDeleted:   {},
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := false
			for _, tgt := range allowed[from] {
				if tgt == to {
					want = true
					break
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, Status("draft").IsValid())
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("Submitted").IsValid()) // case-sensitive
}

func TestSourcesOf(t *testing.T) {
	tests := []struct {
		target Status
		want   []Status
	}{
		{StatusSubmitted, []Status{StatusAccepted, StatusRejected, StatusWithdrawn}},
		{StatusAccepted, []Status{StatusSubmitted, StatusRejected, StatusConfirmed, StatusCanceled}},
		{StatusRejected, []Status{StatusSubmitted, StatusAccepted}},
		{StatusConfirmed, []Status{StatusAccepted, StatusCanceled}},
		{StatusCanceled, []Status{StatusAccepted, StatusConfirmed}},
		{StatusWithdrawn, []Status{StatusSubmitted}},
		{StatusDeleted, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			got := SourcesOf(tt.target)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateTransitionErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		target  Status
		want    string
	}{
		{
			"several sources", StatusSubmitted, StatusConfirmed,
			"Proposal must be accepted or canceled to be confirmed.",
		},
		{
			"many sources", StatusDeleted, StatusAccepted,
			"Proposal must be submitted, rejected, confirmed or canceled to be accepted.",
		},
		{
			"single source", StatusAccepted, StatusWithdrawn,
			"Proposal must be submitted to be withdrawn.",
		},
		{
			"unreachable target", StatusSubmitted, StatusDeleted,
			"Proposal cannot be deleted.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &StateTransitionError{Current: tt.current, Target: tt.target}
			assert.EqualError(t, err, tt.want)
		})
	}
}
