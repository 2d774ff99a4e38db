package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/offres-filter/internal/offers"
)

type limitFilter struct {
	disabled bool
	reason   string
	limit    int
}

// NewLimit creates a filter that keeps at most the configured number of offers.
// A zero limit keeps everything.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *limitFilter) IsEnabled() bool { return !f.disabled }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg == nil {
		return nil
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", cfg.Limit)
	}
	f.limit = cfg.Limit
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, o *offers.Offers) (*offers.Offers, Step, error) {
	initial := o.Len()
	if f.limit == 0 || initial <= f.limit {
		return o, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := 0
	o.Filter(func(*offers.Offer) bool {
		kept++
		return kept <= f.limit
	})

	return o, Step{Initial: initial, Dropped: initial - o.Len(), Left: o.Len()}, nil
}

func (f *limitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"limit": strconv.Itoa(f.limit)},
	}
}
