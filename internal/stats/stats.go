package stats

import (
	"sort"

	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/offers"
	"github.com/spigell/offres-filter/internal/partition"
)

// TopKeywords is the number of most frequent training-organization keywords reported.
const TopKeywords = 5

// Verdict thresholds on the quality score, in percent.
const (
	ExcellentThreshold = 30.0
	GoodThreshold      = 15.0
)

// Verdict is the qualitative tier of a quality score.
type Verdict string

const (
	VerdictNone            Verdict = ""
	VerdictExcellent       Verdict = "excellent"
	VerdictGood            Verdict = "good"
	VerdictNeedsRefinement Verdict = "needs refinement"
)

// Share is a count and its percentage of a reference total.
type Share struct {
	Count   int
	Percent float64
}

// ContractShare is the share of one contract type among real offers.
type ContractShare struct {
	Type lexicon.ContractType
	Share
}

// KeywordShare is how often a keyword was matched, as a share of training-organization offers.
type KeywordShare struct {
	Keyword string
	Share
}

// RunStatistics summarizes one run.
type RunStatistics struct {
	RunID       string
	Total       int
	TrainingOrg Share
	Real        Share
	// Contracts lists real offers per contract type, in priority order with non_precise last.
	Contracts   []ContractShare
	TopKeywords []KeywordShare
	// Alternance is the alternance count as a share of real offers.
	Alternance   Share
	QualityScore float64
	Verdict      Verdict
	// Writes is the persist outcome, nil until WithWrites is called.
	Writes *partition.PersistReport
}

// Percent returns count/total*100, or 0 when total is 0.
func Percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Summarize computes the statistics of a run from the full annotated collection and its partition.
func Summarize(all []*offers.Annotated, d *partition.Dataset) RunStatistics {
	total := len(all)
	training := d.Count(partition.SchoolSubset)
	realCount := total - training

	s := RunStatistics{
		Total:       total,
		TrainingOrg: Share{Count: training, Percent: Percent(training, total)},
		Real:        Share{Count: realCount, Percent: Percent(realCount, total)},
	}

	for _, t := range lexicon.Categories() {
		n := d.Count(partition.SubsetName(t))
		s.Contracts = append(s.Contracts, ContractShare{Type: t, Share: Share{Count: n, Percent: Percent(n, realCount)}})
	}

	s.TopKeywords = topKeywords(d.Subset(partition.SchoolSubset), TopKeywords)

	alternance := d.Count(partition.SubsetName(lexicon.Alternance))
	s.Alternance = Share{Count: alternance, Percent: Percent(alternance, realCount)}
	s.QualityScore = Percent(alternance, total)
	s.Verdict = verdict(alternance, s.QualityScore)

	return s
}

// WithWrites folds the persist outcome of the run into the statistics.
func (s RunStatistics) WithWrites(runID string, r *partition.PersistReport) RunStatistics {
	s.RunID = runID
	s.Writes = r
	return s
}

// Degraded reports whether at least one non-empty subset was not written.
func (s RunStatistics) Degraded() bool {
	return s.Writes != nil && s.Writes.Degraded()
}

// Contract returns the share of one contract type.
func (s RunStatistics) Contract(t lexicon.ContractType) ContractShare {
	for _, c := range s.Contracts {
		if c.Type == t {
			return c
		}
	}
	return ContractShare{Type: t}
}

// Distribution returns the non-empty contract shares sorted by count descending;
// equal counts keep priority order.
func (s RunStatistics) Distribution() []ContractShare {
	out := make([]ContractShare, 0, len(s.Contracts))
	for _, c := range s.Contracts {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func verdict(alternance int, score float64) Verdict {
	if alternance == 0 {
		return VerdictNone
	}
	switch {
	case score >= ExcellentThreshold:
		return VerdictExcellent
	case score >= GoodThreshold:
		return VerdictGood
	default:
		return VerdictNeedsRefinement
	}
}

func topKeywords(school []*offers.Annotated, limit int) []KeywordShare {
	counts := make(map[string]int)
	var order []string

	for _, a := range school {
		for _, kw := range a.Classification.MatchedKeywords {
			if _, ok := counts[kw]; !ok {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	// order holds first occurrence; a stable sort keeps it for equal frequencies
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]KeywordShare, 0, len(order))
	for _, kw := range order {
		out = append(out, KeywordShare{
			Keyword: kw,
			Share:   Share{Count: counts[kw], Percent: Percent(counts[kw], len(school))},
		})
	}
	return out
}
