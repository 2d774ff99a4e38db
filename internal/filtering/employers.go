package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/offres-filter/internal/offers"
)

type companiesFilter struct {
	disabled  bool
	reason    string
	companies map[string]struct{}
	names     []string
}

// NewCompanies creates a filter that removes offers of the companies configured in the config.
// Company names are compared case-insensitively.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "employers" }

func (f *companiesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *companiesFilter) IsEnabled() bool { return !f.disabled }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}
	for _, c := range cfg.Companies {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			continue
		}
		f.companies[key] = struct{}{}
		f.names = append(f.names, c)
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, o *offers.Offers) (*offers.Offers, Step, error) {
	initial := o.Len()
	if len(f.companies) == 0 {
		return o, Step{Initial: initial, Dropped: 0, Left: o.Len()}, nil
	}

	excluded := o.Filter(func(offer *offers.Offer) bool {
		_, found := f.companies[strings.ToLower(strings.TrimSpace(offer.Company))]
		return !found
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding offers by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_offers", excluded),
			zap.Int("offers_left", o.Len()),
		)
	}

	return o, Step{Initial: initial, Dropped: len(excluded), Left: o.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
