package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromYAML loads lexicon overrides from a YAML file.
//
// Expected format:
//
//	training_org: [ynov, ecole, campus]
//	contracts:
//	  alternance: [alternance, apprentissage]
//	  cdi: [cdi, temps plein]
//
// A present training_org list replaces the built-in one. Each listed contract type
// replaces the built-in phrases of that type; unlisted types keep theirs.
// The priority order of contract types is fixed and cannot be changed by the file.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file struct {
		TrainingOrg []string            `yaml:"training_org"`
		Contracts   map[string][]string `yaml:"contracts"`
	}

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidLexicon, path, err)
	}

	training := defaultTrainingOrg
	if file.TrainingOrg != nil {
		training = file.TrainingOrg
	}

	contracts := make(map[ContractType][]string, len(defaultContracts))
	for t, phrases := range defaultContracts {
		contracts[t] = phrases
	}
	for name, phrases := range file.Contracts {
		t := ContractType(name)
		if !IsContractType(t) {
			return nil, fmt.Errorf("%w: unknown contract type %q in %s", ErrInvalidLexicon, t, path)
		}
		contracts[t] = phrases
	}

	return New(training, contracts)
}
