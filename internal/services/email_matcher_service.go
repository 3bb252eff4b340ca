package services

import (
	"fmt"
	"strings"

	"github.com/digitool/volerex/internal/models"
)

// EmailMatcherService scores inbound emails against the matching
// criteria of email templates. Scoring is deterministic and touches
// no external state.
type EmailMatcherService struct {
	autoThreshold float64
}

func NewEmailMatcherService(autoThreshold float64) *EmailMatcherService {
	return &EmailMatcherService{
		autoThreshold: autoThreshold,
	}
}

// Match scores the email against every given template and returns the
// best match, or nil when no template scores above zero
func (s *EmailMatcherService) Match(sender, subject, content string, templates []*models.EmailTemplate) *models.EmailMatchResult {
	var best *models.EmailMatchResult

	for _, t := range templates {
		score, reasons, ok := s.Score(sender, subject, content, t)
		if !ok || score <= 0 {
			continue
		}
		if best == nil || score > best.ConfidenceScore {
			best = &models.EmailMatchResult{
				TemplateID:      t.ID.String(),
				TemplateName:    t.Name,
				ConfidenceScore: score,
				MatchReasons:    reasons,
				AutoProcessable: score >= s.autoThreshold,
			}
		}
	}

	return best
}

// Score computes the confidence score for one email against one
// template. It returns ok=false for hard rejections, where an excluded
// word appears or a required word is missing.
func (s *EmailMatcherService) Score(sender, subject, content string, t *models.EmailTemplate) (float64, []string, bool) {
	c := t.MatchingCriteria

	senderLower := strings.ToLower(strings.TrimSpace(sender))
	subjectLower := strings.ToLower(subject)
	haystack := subjectLower + " " + strings.ToLower(content)

	for _, word := range c.ExcludedWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" && strings.Contains(haystack, word) {
			return 0, nil, false
		}
	}

	if len(c.RequiredWords) > 0 {
		found := false
		for _, word := range c.RequiredWords {
			word = strings.ToLower(strings.TrimSpace(word))
			if word != "" && strings.Contains(haystack, word) {
				found = true
				break
			}
		}
		if !found {
			return 0, nil, false
		}
	}

	var score float64
	var reasons []string

	// An exact sender address beats a domain match; the two never stack
	matchedSender := false
	for _, email := range c.SenderEmails {
		if senderLower == strings.ToLower(strings.TrimSpace(email)) {
			score += 0.4
			reasons = append(reasons, fmt.Sprintf("sender matches %s", email))
			matchedSender = true
			break
		}
	}
	if !matchedSender {
		for _, domain := range c.SenderDomains {
			// Configured with or without the leading @
			domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
			if domain != "" && strings.HasSuffix(senderLower, "@"+domain) {
				score += 0.3
				reasons = append(reasons, fmt.Sprintf("sender domain matches %s", domain))
				break
			}
		}
	}

	if len(c.SubjectKeywords) > 0 {
		matched := 0
		for _, kw := range c.SubjectKeywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(subjectLower, kw) {
				matched++
			}
		}
		if matched > 0 {
			score += 0.4 * float64(matched) / float64(len(c.SubjectKeywords))
			reasons = append(reasons, fmt.Sprintf("%d of %d subject keywords", matched, len(c.SubjectKeywords)))
		}
	}

	if len(c.RequiredWords) > 0 {
		score += 0.2
		reasons = append(reasons, "required words present")
	}

	if score > 1 {
		score = 1
	}

	return score, reasons, true
}
