package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/digitool/volerex/internal/models"
)

// The matcher is a pure function: scores stay in [0,1], repeat calls
// agree, and an excluded word always forces a rejection.

func TestProperty_MatcherScoreBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	matcher := NewEmailMatcherService(0.7)

	wordGen := gen.RegexMatch(`[a-z]{2,10}`)

	properties.Property("score_within_bounds", prop.ForAll(
		func(sender, subject, content, domain, keyword string) bool {
			template := &models.EmailTemplate{
				ID: uuid.New(),
				MatchingCriteria: models.EmailMatchingCriteria{
					SenderDomains:   []string{domain + ".example"},
					SubjectKeywords: []string{keyword},
				},
			}

			score, _, _ := matcher.Score(sender+"@mail.example", subject, content, template)
			return score >= 0 && score <= 1
		},
		wordGen, wordGen, wordGen, wordGen, wordGen,
	))

	properties.Property("scoring_is_deterministic", prop.ForAll(
		func(sender, subject, content string) bool {
			template := &models.EmailTemplate{
				ID: uuid.New(),
				MatchingCriteria: models.EmailMatchingCriteria{
					SenderDomains:   []string{"mail.example"},
					SubjectKeywords: []string{"invoice"},
					RequiredWords:   []string{"due"},
				},
			}

			a, _, okA := matcher.Score(sender, subject, content, template)
			b, _, okB := matcher.Score(sender, subject, content, template)
			return a == b && okA == okB
		},
		wordGen, wordGen, wordGen,
	))

	properties.Property("excluded_word_always_rejects", prop.ForAll(
		func(sender, subject, excluded string) bool {
			template := &models.EmailTemplate{
				ID: uuid.New(),
				MatchingCriteria: models.EmailMatchingCriteria{
					SenderEmails:    []string{sender + "@mail.example"},
					SubjectKeywords: []string{subject},
					ExcludedWords:   []string{excluded},
				},
			}

			content := "prefix " + excluded + " suffix"
			score, _, ok := matcher.Score(sender+"@mail.example", subject, content, template)
			return !ok && score == 0
		},
		wordGen, wordGen, wordGen,
	))

	properties.Property("matching_ignores_case", prop.ForAll(
		func(sender, subject, content string) bool {
			template := &models.EmailTemplate{
				ID: uuid.New(),
				MatchingCriteria: models.EmailMatchingCriteria{
					SenderDomains:   []string{"mail.example"},
					SubjectKeywords: []string{subject},
				},
			}

			lower, _, okLower := matcher.Score(sender, subject, content, template)
			upper, _, okUpper := matcher.Score(strings.ToUpper(sender), strings.ToUpper(subject), strings.ToUpper(content), template)
			return lower == upper && okLower == okUpper
		},
		wordGen, wordGen, wordGen,
	))

	properties.TestingRun(t)
}
