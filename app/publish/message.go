package publish

import (
	"fmt"
	"html"
	"strings"

	"github.com/dkotenko/newsmill/app/database"
)

// renderMessage builds the HTML channel post for an article. Articles
// with breaking importance get their own louder template.
func renderMessage(article *database.Article, siteURL string) string {
	title := html.EscapeString(article.Title)
	summary := html.EscapeString(article.Summary)
	link := articleLink(siteURL, article.Slug)

	var b strings.Builder

	if article.Importance == "breaking" {
		b.WriteString("\U0001F6A8 <b>BREAKING</b>\n\n")
		b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", title))
	} else {
		b.WriteString(fmt.Sprintf("<b>%s</b>\n\n", title))
	}

	b.WriteString(summary)
	b.WriteString("\n\n")

	if tags := hashtags(article.Tags); tags != "" {
		b.WriteString(tags)
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("<a href=\"%s\">Read more</a> · %d min read", link, article.ReadingTime))

	return b.String()
}

func articleLink(siteURL, slug string) string {
	return fmt.Sprintf("%s/articles/%s", strings.TrimRight(siteURL, "/"), slug)
}

func hashtags(tags []string) string {
	var parts []string
	for _, tag := range tags {
		tag = strings.ReplaceAll(strings.TrimSpace(tag), " ", "_")
		if tag == "" {
			continue
		}
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}
