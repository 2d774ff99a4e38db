package lexicon

import (
	"errors"
	"fmt"
	"strings"
)

// ContractType is an employment-arrangement category.
type ContractType string

const (
	Alternance ContractType = "alternance"
	Stage      ContractType = "stage"
	CDI        ContractType = "cdi"
	CDD        ContractType = "cdd"
	Freelance  ContractType = "freelance"
	// NonPrecise is assigned when no contract phrase matches.
	NonPrecise ContractType = "non_precise"
)

// ErrInvalidLexicon is returned for lexicon tables that cannot be used.
var ErrInvalidLexicon = errors.New("invalid lexicon")

// priority is the fixed declaration order used to resolve contract types.
// Changing it changes classification outcomes for offers with several indicators.
var priority = []ContractType{Alternance, Stage, CDI, CDD, Freelance}

var defaultTrainingOrg = []string{
	"ynov", "afpa", "openclassrooms", "ifocop", "cesi", "pigier", "epitech",
	"ecole", "école", "campus", "groupe alternance", "formapi", "greta", "akalis",
	"ifa", "institut", "maestris", "aftral", "icademie", "nextadvance",
	"m2i formation", "idrac", "isefac", "cfa", "groupe afec", "alternance academy",
	"centre de formation", "organisme de formation", "école de commerce",
}

var defaultContracts = map[ContractType][]string{
	Alternance: {
		"alternance", "apprentissage", "contrat pro",
		"contrat de professionnalisation", "contrat d'apprentissage",
	},
	Stage:     {"stage", "stagiaire", "convention de stage"},
	CDI:       {"cdi", "temps plein", "contrat durée indéterminée", "contrat à durée indéterminée"},
	CDD:       {"cdd", "contrat durée déterminée", "contrat à durée déterminée", "mission"},
	Freelance: {"freelance", "indépendant", "auto-entrepreneur", "consultant"},
}

// Lexicon holds the keyword tables used by the classifier.
// A Lexicon is never mutated after construction and is safe for concurrent reads.
type Lexicon struct {
	trainingOrg []string
	contracts   map[ContractType][]string
}

// ContractTypes returns the matchable contract types in priority order.
func ContractTypes() []ContractType {
	out := make([]ContractType, len(priority))
	copy(out, priority)
	return out
}

// Categories returns every contract type including NonPrecise, which is always last.
func Categories() []ContractType {
	return append(ContractTypes(), NonPrecise)
}

// IsContractType reports whether t is one of the matchable contract types.
func IsContractType(t ContractType) bool {
	for _, p := range priority {
		if p == t {
			return true
		}
	}
	return false
}

// Default returns the built-in tables.
func Default() *Lexicon {
	lex, err := New(defaultTrainingOrg, defaultContracts)
	if err != nil {
		// built-in tables are static; failing here is a programming error
		panic(err)
	}
	return lex
}

// New builds a lexicon from the supplied tables. Phrases are trimmed and lowercased,
// empty phrases are dropped and duplicates keep their first position.
func New(trainingOrg []string, contracts map[ContractType][]string) (*Lexicon, error) {
	lex := &Lexicon{
		trainingOrg: normalize(trainingOrg),
		contracts:   make(map[ContractType][]string, len(priority)),
	}

	for t, phrases := range contracts {
		if !IsContractType(t) {
			return nil, fmt.Errorf("%w: unknown contract type %q", ErrInvalidLexicon, t)
		}
		lex.contracts[t] = normalize(phrases)
	}

	if len(lex.trainingOrg) == 0 {
		return nil, fmt.Errorf("%w: training organization table is empty", ErrInvalidLexicon)
	}

	return lex, nil
}

// TrainingOrg returns the training-organization phrases in definition order.
// The returned slice must not be modified.
func (l *Lexicon) TrainingOrg() []string {
	return l.trainingOrg
}

// Phrases returns the phrases of a contract type in definition order.
// The returned slice must not be modified.
func (l *Lexicon) Phrases(t ContractType) []string {
	return l.contracts[t]
}

// Size returns the number of training-organization and contract phrases.
func (l *Lexicon) Size() (training int, contracts int) {
	for _, phrases := range l.contracts {
		contracts += len(phrases)
	}
	return len(l.trainingOrg), contracts
}

func normalize(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
