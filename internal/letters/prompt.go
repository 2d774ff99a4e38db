package letters

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spigell/offres-filter/internal/offers"
)

//go:embed prompt.md
var promptTemplate string

const (
	maxDescriptionLength = 900
	notSpecified         = "Non précisé"
	noProjects           = "(Mentionner l'expérience générale en développement)"
)

// BuildPrompt renders the letter prompt for one offer.
func BuildPrompt(offer *offers.Offer, profile *Profile) string {
	description := []rune(strings.TrimSpace(offer.Description))
	if len(description) > maxDescriptionLength {
		description = description[:maxDescriptionLength]
	}

	location := strings.TrimSpace(offer.Location)
	if location == "" {
		location = notSpecified
	}

	replacer := strings.NewReplacer(
		"{{COMPANY}}", offer.Company,
		"{{TITLE}}", offer.Title,
		"{{LOCATION}}", location,
		"{{DESCRIPTION}}", string(description),
		"{{NAME}}", profile.Name,
		"{{EDUCATION}}", profile.Education,
		"{{SCHOOL}}", profile.School,
		"{{CITY}}", profile.City,
		"{{DOMAIN}}", profile.Domain,
		"{{DURATION}}", profile.Duration,
		"{{STACK}}", profile.Stack,
		"{{TESTING}}", profile.Testing,
		"{{PROJECTS}}", renderProjects(profile.SelectProjects(offer.Description, MaxProjects)),
		"{{SOFT_SKILLS}}", profile.SoftSkills,
		"{{MOTIVATION}}", profile.Motivation,
		"{{COMPANY_TYPE}}", profile.CompanyType,
		"{{OBJECTIVES}}", profile.Objectives,
	)
	return replacer.Replace(promptTemplate)
}

func renderProjects(projects []Project) string {
	if len(projects) == 0 {
		return noProjects
	}

	var b strings.Builder
	for i, p := range projects {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Projet %d : %s\n%s\n", i+1, p.Name, p.Description)
		if p.Technologies != "" {
			fmt.Fprintf(&b, "Technologies : %s\n", p.Technologies)
		}
		if p.Link != "" {
			fmt.Fprintf(&b, "Lien : %s\n", p.Link)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
