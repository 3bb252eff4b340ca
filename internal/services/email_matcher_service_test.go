package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/digitool/volerex/internal/models"
)

func invoiceTemplate() *models.EmailTemplate {
	return &models.EmailTemplate{
		ID:       uuid.New(),
		Name:     "Supplier Invoices",
		IsActive: true,
		MatchingCriteria: models.EmailMatchingCriteria{
			SenderDomains:   []string{"supplier.example"},
			SenderEmails:    []string{"billing@supplier.example"},
			SubjectKeywords: []string{"invoice", "faktura"},
			RequiredWords:   []string{"amount due"},
			ExcludedWords:   []string{"newsletter"},
		},
	}
}

func TestEmailMatcherScore(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)

	testCases := []struct {
		name          string
		sender        string
		subject       string
		content       string
		expectedScore float64
		expectMatch   bool
		description   string
	}{
		{
			name:          "Exact sender with all signals",
			sender:        "billing@supplier.example",
			subject:       "Invoice 1234 faktura",
			content:       "Your amount due is 500 EUR",
			expectedScore: 1.0,
			expectMatch:   true,
			description:   "Exact sender, both keywords and required words should saturate the score",
		},
		{
			name:          "Domain match with one keyword",
			sender:        "orders@supplier.example",
			subject:       "Invoice attached",
			content:       "amount due next week",
			expectedScore: 0.3 + 0.2 + 0.2,
			expectMatch:   true,
			description:   "Domain match plus half the subject keywords plus required words",
		},
		{
			name:          "Excluded word rejects outright",
			sender:        "billing@supplier.example",
			subject:       "Invoice newsletter",
			content:       "amount due",
			expectedScore: 0,
			expectMatch:   false,
			description:   "An excluded word anywhere wins over every positive signal",
		},
		{
			name:          "Missing required words rejects",
			sender:        "billing@supplier.example",
			subject:       "Invoice 1234",
			content:       "see attachment",
			expectedScore: 0,
			expectMatch:   false,
			description:   "Required words are a hard gate, not a bonus",
		},
		{
			name:          "Case insensitive matching",
			sender:        "BILLING@SUPPLIER.EXAMPLE",
			subject:       "INVOICE",
			content:       "AMOUNT DUE",
			expectedScore: 0.4 + 0.2 + 0.2,
			expectMatch:   true,
			description:   "Sender, subject and content comparisons ignore case",
		},
		{
			name:          "Unrelated email scores zero",
			sender:        "friend@personal.example",
			subject:       "Lunch tomorrow?",
			content:       "amount due to nothing",
			expectedScore: 0.2,
			expectMatch:   true,
			description:   "Only the required word signal fires for an unrelated sender",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, _, ok := matcher.Score(tc.sender, tc.subject, tc.content, invoiceTemplate())

			assert.Equal(t, tc.expectMatch, ok, tc.description)
			assert.InDelta(t, tc.expectedScore, score, 0.001, tc.description)
		})
	}
}

func TestEmailMatcherSenderSignalsDoNotStack(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)
	template := invoiceTemplate()
	template.MatchingCriteria.RequiredWords = nil
	template.MatchingCriteria.SubjectKeywords = nil

	score, _, ok := matcher.Score("billing@supplier.example", "hello", "world", template)

	assert.True(t, ok)
	assert.InDelta(t, 0.4, score, 0.001, "Exact sender should not also collect the domain bonus")
}

func TestEmailMatcherAutoThreshold(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)

	t.Run("Confident match is auto processable", func(t *testing.T) {
		match := matcher.Match("billing@supplier.example", "Invoice faktura", "amount due", []*models.EmailTemplate{invoiceTemplate()})

		assert.NotNil(t, match)
		assert.True(t, match.AutoProcessable)
	})

	t.Run("Weak match needs manual confirmation", func(t *testing.T) {
		template := invoiceTemplate()
		template.MatchingCriteria.RequiredWords = nil
		template.MatchingCriteria.SenderEmails = nil
		template.MatchingCriteria.SenderDomains = nil

		match := matcher.Match("anyone@else.example", "Invoice", "text", []*models.EmailTemplate{template})

		assert.NotNil(t, match)
		assert.False(t, match.AutoProcessable)
		assert.InDelta(t, 0.2, match.ConfidenceScore, 0.001)
	})

	t.Run("No signal means no match", func(t *testing.T) {
		template := invoiceTemplate()
		template.MatchingCriteria.RequiredWords = nil

		match := matcher.Match("anyone@else.example", "hello", "world", []*models.EmailTemplate{template})

		assert.Nil(t, match)
	})
}

func TestEmailMatcherDomainForms(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)

	template := invoiceTemplate()
	template.MatchingCriteria = models.EmailMatchingCriteria{
		SenderDomains: []string{"@acme.com"},
	}

	score, _, ok := matcher.Score("x@acme.com", "hello", "world", template)

	assert.True(t, ok)
	assert.InDelta(t, 0.3, score, 0.001, "A configured leading @ should not break the domain match")
}

func TestEmailMatcherDomainRaisesScore(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)

	template := invoiceTemplate()
	template.MatchingCriteria = models.EmailMatchingCriteria{
		SenderDomains:   []string{"acme.com"},
		SubjectKeywords: []string{"invoice"},
	}

	withDomain, _, ok := matcher.Score("x@acme.com", "Monthly invoice", "", template)
	assert.True(t, ok)

	keywordOnly, _, ok := matcher.Score("x@other.com", "Monthly invoice", "", template)
	assert.True(t, ok)

	assert.Greater(t, withDomain, keywordOnly)
}

func TestEmailMatcherPicksBestTemplate(t *testing.T) {
	matcher := NewEmailMatcherService(0.7)

	weak := invoiceTemplate()
	weak.Name = "Weak"
	weak.MatchingCriteria = models.EmailMatchingCriteria{
		SubjectKeywords: []string{"invoice"},
	}

	strong := invoiceTemplate()
	strong.Name = "Strong"

	match := matcher.Match("billing@supplier.example", "Invoice faktura", "amount due", []*models.EmailTemplate{weak, strong})

	assert.NotNil(t, match)
	assert.Equal(t, "Strong", match.TemplateName)
}
