package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/offers"
)

type excludeFileFilter struct {
	disabled bool
	reason   string
	path     string
}

// NewExcludeFile creates a filter that removes offers already listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludeFileFilter) IsEnabled() bool { return !f.disabled }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, o *offers.Offers) (*offers.Offers, Step, error) {
	initial := o.Len()
	if f.path == "" {
		return o, Step{Initial: initial, Dropped: 0, Left: o.Len()}, nil
	}

	excluded, err := offers.GetExcludedOffersFromFile(f.path)
	if err != nil {
		return o, Step{}, fmt.Errorf("getting excluded offers from file: %w", err)
	}

	keys := make(map[string]struct{}, excluded.Len())
	for _, k := range excluded.Keys() {
		keys[k] = struct{}{}
	}

	removed := o.Filter(func(offer *offers.Offer) bool {
		_, found := keys[offer.Key()]
		return !found
	})
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding offers based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_offers", removed),
			zap.Int("offers_left", o.Len()),
		)
	}

	return o, Step{Initial: initial, Dropped: len(removed), Left: o.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
