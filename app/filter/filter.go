package filter

import (
	"fmt"
	"strings"

	"github.com/dkotenko/newsmill/app/database"
)

// MinContentLength is the minimum combined title+description length an
// item needs before it is worth a paid transformation call.
const MinContentLength = 80

// syndicationMarkers flag wire-service noise that gets republished
// verbatim across many outlets.
var syndicationMarkers = []string{
	"(reuters)",
	"(ap)",
	"(afp)",
	"syndicated content",
	"this content is republished",
}

// boilerplateMarkers flag press-release boilerplate that never makes a
// publishable article.
var boilerplateMarkers = []string{
	"press release",
	"prnewswire",
	"businesswire",
	"globe newswire",
	"accesswire",
	"sponsored content",
	"advertorial",
}

// Filterer decides whether a raw item is worth transforming. It runs
// before any paid call, is side-effect-free, and touches nothing but the
// item itself.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// ShouldProcess reports whether the item passes the pre-AI admission
// gate, with a short reason when it does not.
func (f *Filterer) ShouldProcess(item database.RawItem) (bool, string) {
	content := strings.TrimSpace(item.Title + " " + item.Description)
	if len(content) < MinContentLength {
		return false, fmt.Sprintf("content too short: %d < %d", len(content), MinContentLength)
	}

	lowered := strings.ToLower(content)

	for _, marker := range syndicationMarkers {
		if strings.Contains(lowered, marker) {
			return false, fmt.Sprintf("syndication noise: contains '%s'", marker)
		}
	}

	for _, marker := range boilerplateMarkers {
		if strings.Contains(lowered, marker) {
			return false, fmt.Sprintf("excluded boilerplate: contains '%s'", marker)
		}
	}

	return true, ""
}
