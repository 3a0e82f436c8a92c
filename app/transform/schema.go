package transform

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Length bands and enums for the provider's structured response.
const (
	titleMinLen   = 10
	titleMaxLen   = 120
	summaryMinLen = 50
	summaryMaxLen = 500
	tagsMax       = 10
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

var validImportances = map[string]bool{
	"low":      true,
	"normal":   true,
	"high":     true,
	"breaking": true,
}

// payload is the structured object the provider must return.
type payload struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Body        string   `json:"body"`
	Slug        string   `json:"slug"`
	Difficulty  string   `json:"difficulty"`
	Importance  string   `json:"importance"`
	Tags        []string `json:"tags"`
	ReadingTime int      `json:"reading_time"`
}

// ValidationError marks a well-formed but contract-violating provider
// response. It is never retried against the provider: retrying cannot
// fix a structurally malformed answer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (p *payload) validate() error {
	// Length bands are over characters, not bytes: non-ASCII text must
	// not hit the ceiling early.
	if n := utf8.RuneCountInString(p.Title); n < titleMinLen || n > titleMaxLen {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("length %d outside [%d, %d]", n, titleMinLen, titleMaxLen)}
	}
	if n := utf8.RuneCountInString(p.Summary); n < summaryMinLen || n > summaryMaxLen {
		return &ValidationError{Field: "summary", Reason: fmt.Sprintf("length %d outside [%d, %d]", n, summaryMinLen, summaryMaxLen)}
	}
	if p.Body == "" {
		return &ValidationError{Field: "body", Reason: "empty"}
	}
	if !slugPattern.MatchString(p.Slug) {
		return &ValidationError{Field: "slug", Reason: fmt.Sprintf("'%s' does not match %s", p.Slug, slugPattern.String())}
	}
	if !validDifficulties[p.Difficulty] {
		return &ValidationError{Field: "difficulty", Reason: fmt.Sprintf("unknown value '%s'", p.Difficulty)}
	}
	if !validImportances[p.Importance] {
		return &ValidationError{Field: "importance", Reason: fmt.Sprintf("unknown value '%s'", p.Importance)}
	}
	if n := len(p.Tags); n < 1 || n > tagsMax {
		return &ValidationError{Field: "tags", Reason: fmt.Sprintf("count %d outside [1, %d]", n, tagsMax)}
	}
	if p.ReadingTime < 1 {
		return &ValidationError{Field: "reading_time", Reason: "must be at least 1"}
	}
	return nil
}
