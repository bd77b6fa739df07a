package fetch

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/autocareer/internal/model"
)

// isFeed reports whether a response looks like an RSS or Atom document.
func isFeed(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}
	if strings.Contains(ct, "html") {
		return false
	}
	head := strings.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<rss") || strings.Contains(head, "<feed")
}

// renderFeed flattens feed items into a listing the discovery prompt can read.
// Markup output keeps each item as a markdown link.
func renderFeed(body, pageURL string, format model.Format) (model.Page, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return model.Page{}, fmt.Errorf("parsing feed: %w", err)
	}

	var b strings.Builder
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if format == model.FormatMarkup {
			fmt.Fprintf(&b, "- [%s](%s)\n", title, link)
		} else {
			fmt.Fprintf(&b, "%s\n%s\n", title, link)
		}
		if desc := plainText(item.Description); desc != "" {
			fmt.Fprintf(&b, "  %s\n", desc)
		}
	}

	return model.Page{
		Title:   strings.TrimSpace(feed.Title),
		Content: strings.TrimSpace(b.String()),
		URL:     pageURL,
	}, nil
}
