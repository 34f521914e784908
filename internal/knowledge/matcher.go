// Package knowledge matches chat messages against knowledge-base keywords
// and renders article solutions.
package knowledge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Match returns the first article, in input order, with a keyword contained
// in the lowercased message. Relevance is not ranked.
func Match(message string, articles []model.KnowledgeArticle) (*model.KnowledgeArticle, bool) {
	lower := strings.ToLower(message)
	for i := range articles {
		for _, kw := range articles[i].Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return &articles[i], true
			}
		}
	}
	return nil, false
}

// CannedReply is the assistant message sent instead of calling the chatbot.
func CannedReply(a *model.KnowledgeArticle) string {
	return fmt.Sprintf("I found a solution for your issue:\n\n**%s**\n\n%s", a.Title, a.Solution)
}

// Filter returns the articles whose title, solution or any keyword contains query.
// An empty query returns articles unchanged.
func Filter(articles []model.KnowledgeArticle, query string) []model.KnowledgeArticle {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return articles
	}
	out := make([]model.KnowledgeArticle, 0, len(articles))
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Solution), q) {
			out = append(out, a)
			continue
		}
		for _, kw := range a.Keywords {
			if strings.Contains(strings.ToLower(kw), q) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderSolution converts an article's markdown solution to HTML.
func RenderSolution(solution string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(solution), &buf); err != nil {
		return "", fmt.Errorf("render solution: %w", err)
	}
	return buf.String(), nil
}
