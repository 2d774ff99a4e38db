package offers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const (
	ExcludeActorLetters = "letters"
	ExcludeActorManual  = "manual"
)

type ExcludedOffers struct {
	Items []*ExcludedOffer
}

type ExcludedOffer struct {
	Key        string
	URL        string
	Company    string
	Title      string
	Actor      string
	ExcludedAt time.Time
}

// ToExcluded converts the offers into exclude file entries recorded by actor.
func ToExcluded(items []*Offer, actor string) *ExcludedOffers {
	excluded := &ExcludedOffers{}
	for _, offer := range items {
		excluded.Items = append(excluded.Items, &ExcludedOffer{
			Key:        offer.Key(),
			URL:        offer.URL,
			Company:    offer.Company,
			Title:      offer.Title,
			Actor:      actor,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// GetExcludedOffersFromFile reads an exclude file. A missing or empty file is an empty list.
func GetExcludedOffersFromFile(path string) (*ExcludedOffers, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedOffers{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedOffers{}, nil
	}

	var excluded ExcludedOffers
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedOffers) Append(s *ExcludedOffers) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedOffers) Len() int {
	return len(e.Items)
}

func (e *ExcludedOffers) Keys() []string {
	keys := make([]string, 0, len(e.Items))
	for _, offer := range e.Items {
		keys = append(keys, offer.Key)
	}
	return keys
}

func (e *ExcludedOffers) ToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
