package partition

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/offres-filter/internal/classifier"
	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/offers"
)

func scenario() []*offers.Offer {
	return []*offers.Offer{
		{Company: "Ynov Campus", Description: "stage de 6 mois"},
		{Company: "Acme Corp", Contract: "CDI temps plein"},
		{Company: "Acme Corp", Description: "mission cdd de 6 mois"},
		{Company: "Acme Corp", Contract: "alternance 2 ans"},
	}
}

func corpus(n int) []*offers.Offer {
	companies := []string{"Acme Corp", "Ynov Campus", "Globex", "CESI", "Initech"}
	contracts := []string{"", "CDI", "stage", "alternance", "Freelance", "cddistes", "contrat pro"}
	descriptions := []string{"", "mission de 6 mois", "stage ou cdi", "poste en CDD", "consultant indépendant", "école"}

	items := make([]*offers.Offer, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, &offers.Offer{
			Title:       fmt.Sprintf("offer-%d", i),
			Company:     companies[i%len(companies)],
			Contract:    contracts[i%len(contracts)],
			Description: descriptions[i%len(descriptions)],
		})
	}
	return items
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"offres_ecoles",
		"offres_alternance",
		"offres_stage",
		"offres_cdi",
		"offres_cdd",
		"offres_freelance",
		"offres_non_precise",
	}, Names())
}

func TestPartitionScenario(t *testing.T) {
	d, err := New(nil, 1).Partition(context.Background(), scenario())
	require.NoError(t, err)

	assert.Equal(t, 1, d.Count(SchoolSubset))
	assert.Equal(t, 1, d.Count(SubsetName(lexicon.CDI)))
	assert.Equal(t, 1, d.Count(SubsetName(lexicon.CDD)))
	assert.Equal(t, 1, d.Count(SubsetName(lexicon.Alternance)))
	assert.Equal(t, 0, d.Count(SubsetName(lexicon.Stage)), "training offers must not leak into contract subsets")
	assert.Equal(t, []string{"offres_ecoles", "offres_alternance", "offres_cdi", "offres_cdd"}, d.NonEmpty())

	school := d.Subset(SchoolSubset)[0]
	assert.Equal(t, "Ynov Campus", school.Offer.Company)
	assert.Equal(t, lexicon.Stage, school.Classification.ContractType)
}

func TestPartitionIsExhaustiveAndDisjoint(t *testing.T) {
	items := corpus(200)

	d, err := New(nil, 1).Partition(context.Background(), items)
	require.NoError(t, err)

	seen := make(map[*offers.Offer]string, len(items))
	total := 0
	for _, name := range Names() {
		for _, a := range d.Subset(name) {
			prev, dup := seen[a.Offer]
			require.False(t, dup, "offer %s in both %s and %s", a.Offer.Title, prev, name)
			seen[a.Offer] = name
			total++
		}
	}

	assert.Equal(t, len(items), total)
	for _, offer := range items {
		_, ok := seen[offer]
		assert.True(t, ok, "offer %s missing from every subset", offer.Title)
	}
}

func TestParallelClassificationMatchesSequential(t *testing.T) {
	items := corpus(500)

	sequential, err := New(nil, 1).Classify(context.Background(), items)
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16} {
		parallel, err := New(nil, workers).Classify(context.Background(), items)
		require.NoError(t, err)
		require.Len(t, parallel, len(sequential))

		for i := range sequential {
			assert.Same(t, sequential[i].Offer, parallel[i].Offer)
			assert.Equal(t, sequential[i].Classification, parallel[i].Classification, "workers=%d offer=%d", workers, i)
		}
	}
}

func TestReorderingKeepsClassifications(t *testing.T) {
	items := corpus(100)
	c := classifier.New(nil)

	baseline := make(map[*offers.Offer]offers.Classification, len(items))
	for _, offer := range items {
		baseline[offer] = c.Classify(offer)
	}

	shuffled := make([]*offers.Offer, len(items))
	copy(shuffled, items)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	annotated, err := New(c, 4).Classify(context.Background(), shuffled)
	require.NoError(t, err)

	for _, a := range annotated {
		assert.Equal(t, baseline[a.Offer], a.Classification)
	}
}

func TestClassifyInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, 4).Classify(ctx, corpus(10))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPartitionEmpty(t *testing.T) {
	d, err := New(nil, 4).Partition(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, d.All)
	assert.Empty(t, d.NonEmpty())
}

type fakeSink struct {
	fail    map[string]error
	written []string
}

func (s *fakeSink) Write(name string, rows []*offers.Annotated) (string, error) {
	if err := s.fail[name]; err != nil {
		return "", err
	}
	s.written = append(s.written, name)
	return "mem://" + name, nil
}

type recordingObserver struct {
	written []Written
	failed  []*WriteError
}

func (o *recordingObserver) SubsetWritten(w Written)      { o.written = append(o.written, w) }
func (o *recordingObserver) SubsetFailed(err *WriteError) { o.failed = append(o.failed, err) }

func TestPersistOrderAndPartialFailure(t *testing.T) {
	d, err := New(nil, 1).Partition(context.Background(), scenario())
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	sink := &fakeSink{fail: map[string]error{"offres_alternance": diskFull}}
	observer := &recordingObserver{}

	report := Persist(context.Background(), d, sink, observer)

	assert.Equal(t, []string{"offres_ecoles", "offres_cdi", "offres_cdd"}, sink.written)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "offres_alternance", report.Failures[0].Subset)
	assert.ErrorIs(t, report.Failures[0], diskFull)
	assert.True(t, report.Degraded())
	assert.Len(t, observer.written, 3)
	assert.Len(t, observer.failed, 1)
	assert.Equal(t, "mem://offres_ecoles", report.Written[0].Location)
}

func TestPersistInterrupted(t *testing.T) {
	d, err := New(nil, 1).Partition(context.Background(), scenario())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	report := Persist(ctx, d, sink, nil)

	assert.Empty(t, sink.written)
	assert.Equal(t, d.NonEmpty(), report.Skipped)
	assert.True(t, report.Degraded())
}

func TestPersistEmptyDataset(t *testing.T) {
	sink := &fakeSink{}
	report := Persist(context.Background(), Split(nil), sink, nil)

	assert.Empty(t, sink.written)
	assert.False(t, report.Degraded())
}
