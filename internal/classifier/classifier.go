package classifier

import (
	"github.com/spigell/offres-filter/internal/lexicon"
	"github.com/spigell/offres-filter/internal/matching"
	"github.com/spigell/offres-filter/internal/offers"
)

// Classifier labels offers with the rule tables of a lexicon.
// It holds no mutable state and can be shared between goroutines.
type Classifier struct {
	lex        *lexicon.Lexicon
	categories []matching.Category[lexicon.ContractType]
}

// New returns a classifier over lex. A nil lexicon uses the built-in tables.
func New(lex *lexicon.Lexicon) *Classifier {
	if lex == nil {
		lex = lexicon.Default()
	}

	types := lexicon.ContractTypes()
	categories := make([]matching.Category[lexicon.ContractType], 0, len(types))
	for _, t := range types {
		categories = append(categories, matching.Category[lexicon.ContractType]{
			Key:     t,
			Phrases: lex.Phrases(t),
		})
	}

	return &Classifier{lex: lex, categories: categories}
}

// Classify returns the verdict for a single offer. It never fails; missing fields are empty text.
func (c *Classifier) Classify(offer *offers.Offer) offers.Classification {
	if offer == nil {
		offer = &offers.Offer{}
	}

	keywords := c.TrainingOrgKeywords(offer.Company, offer.Description)
	return offers.Classification{
		IsTrainingOrg:   len(keywords) > 0,
		MatchedKeywords: keywords,
		ContractType:    c.ContractType(offer.Contract, offer.Description),
	}
}

// TrainingOrgKeywords returns every training-organization phrase found in company
// and description, in lexicon order.
func (c *Classifier) TrainingOrgKeywords(company, description string) []string {
	return matching.FindAll(c.lex.TrainingOrg(), matching.Combine(company, description))
}

// ContractType resolves the contract type from contract and description.
// The first contract type in priority order with a word-boundary match wins.
func (c *Classifier) ContractType(contract, description string) lexicon.ContractType {
	t, ok := matching.FindFirst(c.categories, matching.Combine(contract, description))
	if !ok {
		return lexicon.NonPrecise
	}
	return t
}
