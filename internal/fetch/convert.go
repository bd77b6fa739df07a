package fetch

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/autocareer/internal/model"
)

// Elements that never carry listing content.
const boilerplateSelector = "script, style, noscript, nav, header, footer, svg, iframe"

// renderHTML converts an HTML document into the requested page format.
func renderHTML(rawHTML, pageURL string, format model.Format) (model.Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return model.Page{}, fmt.Errorf("parsing html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(boilerplateSelector).Remove()

	var content string
	switch format {
	case model.FormatMarkup:
		body, err := doc.Find("body").Html()
		if err != nil {
			return model.Page{}, fmt.Errorf("serializing html: %w", err)
		}
		// No domain: links stay as written and are resolved by the caller.
		content, err = md.NewConverter("", true, nil).ConvertString(body)
		if err != nil {
			return model.Page{}, fmt.Errorf("converting html to markdown: %w", err)
		}
	default:
		content = collapseLines(doc.Find("body").Text())
	}

	return model.Page{Title: title, Content: strings.TrimSpace(content), URL: pageURL}, nil
}

// collapseLines trims every line, collapses inner whitespace and drops blank
// lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}

// plainText strips markup from an HTML fragment.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
