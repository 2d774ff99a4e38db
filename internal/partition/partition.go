package partition

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/spigell/offres-filter/internal/classifier"
	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/offers"
)

const (
	subsetPrefix = "offres_"
	// SchoolSubset holds every training-organization offer regardless of contract type.
	SchoolSubset = subsetPrefix + "ecoles"
)

// SubsetName returns the subset name of a contract type.
func SubsetName(t lexicon.ContractType) string {
	return subsetPrefix + string(t)
}

// Names returns every subset name in persistence order: training organizations first,
// then contract types in priority order, non_precise last.
func Names() []string {
	categories := lexicon.Categories()
	names := make([]string, 0, len(categories)+1)
	names = append(names, SchoolSubset)
	for _, t := range categories {
		names = append(names, SubsetName(t))
	}
	return names
}

// Dataset is a disjoint, exhaustive partition of one offer collection.
type Dataset struct {
	// All holds every annotated offer in input order.
	All     []*offers.Annotated
	subsets map[string][]*offers.Annotated
}

// Subset returns the offers of a named subset in input order.
func (d *Dataset) Subset(name string) []*offers.Annotated {
	return d.subsets[name]
}

// Count returns the size of a named subset; unknown or empty subsets are zero.
func (d *Dataset) Count(name string) int {
	return len(d.subsets[name])
}

// NonEmpty returns the names of subsets with at least one offer, in persistence order.
func (d *Dataset) NonEmpty() []string {
	var names []string
	for _, name := range Names() {
		if d.Count(name) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Partitioner classifies offers and splits them into subsets.
type Partitioner struct {
	classifier *classifier.Classifier
	workers    int
}

// New returns a partitioner. workers <= 1 classifies sequentially.
func New(c *classifier.Classifier, workers int) *Partitioner {
	if c == nil {
		c = classifier.New(nil)
	}
	if workers < 1 {
		workers = 1
	}
	return &Partitioner{classifier: c, workers: workers}
}

// Classify annotates every offer. Results keep input order whatever the number of workers.
func (p *Partitioner) Classify(ctx context.Context, items []*offers.Offer) ([]*offers.Annotated, error) {
	annotated := make([]*offers.Annotated, len(items))

	if p.workers == 1 || len(items) < 2 {
		for i, offer := range items {
			annotated[i] = p.annotate(offer)
		}
		return annotated, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, offer := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			annotated[i] = p.annotate(offer)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classification interrupted: %w", err)
	}

	return annotated, nil
}

func (p *Partitioner) annotate(offer *offers.Offer) *offers.Annotated {
	if offer == nil {
		offer = &offers.Offer{}
	}
	return &offers.Annotated{Offer: offer, Classification: p.classifier.Classify(offer)}
}

// Partition classifies the offers and splits them. It performs no I/O.
func (p *Partitioner) Partition(ctx context.Context, items []*offers.Offer) (*Dataset, error) {
	annotated, err := p.Classify(ctx, items)
	if err != nil {
		return nil, err
	}
	return Split(annotated), nil
}

// Split groups already annotated offers. Training-organization offers go to
// SchoolSubset; every other offer goes to the subset of its contract type.
func Split(annotated []*offers.Annotated) *Dataset {
	d := &Dataset{
		All:     annotated,
		subsets: make(map[string][]*offers.Annotated),
	}

	for _, a := range annotated {
		name := SchoolSubset
		if !a.Classification.IsTrainingOrg {
			t := a.Classification.ContractType
			if !lexicon.IsContractType(t) {
				t = lexicon.NonPrecise
			}
			name = SubsetName(t)
		}
		d.subsets[name] = append(d.subsets[name], a)
	}

	return d
}
