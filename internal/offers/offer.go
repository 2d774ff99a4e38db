package offers

import (
	"strings"

	"github.com/spigell/offres-filter/internal/lexicon"
)

const (
	CompanyField     = "company"
	TitleField       = "title"
	DescriptionField = "description"
	ContractField    = "contract"
	LocationField    = "location"
	URLField         = "url"
)

// Offer is one scraped job posting. Offers are not modified after loading.
type Offer struct {
	Title         string `mapstructure:"title" json:"title,omitempty"`
	Company       string `mapstructure:"company" json:"company,omitempty"`
	Location      string `mapstructure:"location" json:"location,omitempty"`
	Salary        string `mapstructure:"salary" json:"salary,omitempty"`
	Contract      string `mapstructure:"contract" json:"contract,omitempty"`
	Remote        string `mapstructure:"remote" json:"remote,omitempty"`
	PublishedDate string `mapstructure:"publisheddate" json:"published_date,omitempty"`
	Description   string `mapstructure:"description" json:"description,omitempty"`
	URL           string `mapstructure:"url" json:"url,omitempty"`

	// Row keeps every source column by lowercase header name, so outputs
	// carry the input through unchanged.
	Row map[string]string `mapstructure:"-" json:"-"`
}

// Offers is an ordered collection loaded from one source.
type Offers struct {
	// Columns are the source header names in input order.
	Columns []string
	Items   []*Offer
}

// Classification is the rule-based verdict for one offer.
type Classification struct {
	IsTrainingOrg   bool
	MatchedKeywords []string
	ContractType    lexicon.ContractType
}

// Annotated is an offer together with its classification.
type Annotated struct {
	Offer          *Offer
	Classification Classification
}

func (o *Offers) Len() int {
	return len(o.Items)
}

// GetStringField returns a named field of the offer, falling back to the raw row.
func (o *Offer) GetStringField(name string) string {
	switch strings.ToLower(name) {
	case CompanyField:
		return o.Company
	case TitleField:
		return o.Title
	case DescriptionField:
		return o.Description
	case ContractField:
		return o.Contract
	case LocationField:
		return o.Location
	case URLField:
		return o.URL
	default:
		return o.Row[strings.ToLower(name)]
	}
}

// Key identifies an offer across runs: its URL when known, otherwise company and title.
func (o *Offer) Key() string {
	if u := strings.TrimSpace(o.URL); u != "" {
		return u
	}
	return strings.ToLower(strings.TrimSpace(o.Company)) + "|" + strings.ToLower(strings.TrimSpace(o.Title))
}

// Filter keeps the offers accepted by keep and returns the keys of the dropped ones.
// Order of the kept offers is preserved.
func (o *Offers) Filter(keep func(*Offer) bool) []string {
	kept := o.Items[:0]
	var dropped []string
	for _, offer := range o.Items {
		if keep(offer) {
			kept = append(kept, offer)
			continue
		}
		dropped = append(dropped, offer.Key())
	}
	for i := len(kept); i < len(o.Items); i++ {
		o.Items[i] = nil
	}
	o.Items = kept
	return dropped
}
