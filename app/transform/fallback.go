package transform

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const fallbackModel = "template"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// templated is the deterministic non-AI transform used when no provider
// credential is configured. It produces a schema-shaped draft from the
// raw content alone and charges nothing.
func (s *Service) templated(title, body string) *Draft {
	summary := strings.TrimSpace(body)
	if summary == "" {
		summary = title
	}
	if utf8.RuneCountInString(summary) > summaryMaxLen {
		summary = truncateRunes(summary, summaryMaxLen-3) + "..."
	}
	for utf8.RuneCountInString(summary) < summaryMinLen {
		summary += " (no further details available)"
	}

	articleBody := strings.TrimSpace(body)
	if articleBody == "" {
		articleBody = title
	}

	return &Draft{
		Title:       clampTitle(title),
		Summary:     summary,
		Body:        articleBody,
		Slug:        Slugify(title),
		Difficulty:  "medium",
		Importance:  "normal",
		Tags:        fallbackTags(title),
		ReadingTime: readingTime(articleBody),
		Model:       fallbackModel,
	}
}

func clampTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > titleMaxLen {
		title = truncateRunes(title, titleMaxLen)
	}
	for utf8.RuneCountInString(title) < titleMinLen {
		title += " (update)"
	}
	return title
}

// truncateRunes cuts to n characters without splitting a UTF-8
// sequence mid-rune.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Slugify converts a title into a URL-safe slug.
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "article"
	}
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}

// fallbackTags picks the longest words of the title as crude tags.
func fallbackTags(title string) []string {
	var tags []string
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,:;!?'\"()")
		if len(word) >= 5 && slugPattern.MatchString(word) {
			tags = append(tags, word)
		}
		if len(tags) == 5 {
			break
		}
	}
	if len(tags) == 0 {
		tags = []string{"news"}
	}
	return tags
}

// readingTime estimates minutes at 200 words per minute, minimum 1.
func readingTime(body string) int {
	minutes := len(strings.Fields(body)) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
