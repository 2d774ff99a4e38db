package letters

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrProfileNotFound is returned when the candidate profile file does not exist.
var ErrProfileNotFound = errors.New("candidate profile not found")

// MaxProjects is the number of projects mentioned in a letter.
const MaxProjects = 2

// projectKeywords are the technologies used to rank projects against an offer.
var projectKeywords = []string{
	"react", "next", "node", "java", "spring", "python", "api",
	"data", "ia", "test", "docker", "postgres",
}

// Profile is the candidate profile written by the profile setup.
type Profile struct {
	Name        string    `json:"nom"`
	Education   string    `json:"formation"`
	School      string    `json:"ecole"`
	City        string    `json:"ville"`
	Domain      string    `json:"domaine"`
	Contract    string    `json:"contrat"`
	Duration    string    `json:"duree"`
	Stack       string    `json:"stack"`
	Testing     string    `json:"testing"`
	Projects    []Project `json:"projets"`
	SoftSkills  string    `json:"soft_skills"`
	Motivation  string    `json:"motivation_generale"`
	CompanyType string    `json:"type_entreprise"`
	Objectives  string    `json:"objectifs"`
}

type Project struct {
	Name         string `json:"nom"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
	Context      string `json:"contexte"`
	Link         string `json:"lien"`
}

// LoadProfile reads a candidate profile from a JSON file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	if strings.TrimSpace(p.Name) == "" {
		p.Name = "Candidat"
	}
	if strings.TrimSpace(p.Duration) == "" {
		p.Duration = "2 ans"
	}

	return &p, nil
}

// SelectProjects returns up to limit projects ranked by the technologies they share
// with the offer description. Equal scores keep profile order.
func (p *Profile) SelectProjects(description string, limit int) []Project {
	if len(p.Projects) == 0 || limit <= 0 {
		return nil
	}

	desc := strings.ToLower(description)
	scores := make([]int, len(p.Projects))
	for i, project := range p.Projects {
		text := strings.ToLower(project.Name + " " + project.Description + " " + project.Technologies)
		for _, kw := range projectKeywords {
			if strings.Contains(desc, kw) && strings.Contains(text, kw) {
				scores[i]++
			}
		}
	}

	idx := make([]int, len(p.Projects))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if len(idx) > limit {
		idx = idx[:limit]
	}

	out := make([]Project, 0, len(idx))
	for _, i := range idx {
		out = append(out, p.Projects[i])
	}
	return out
}
