package email

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/pricewatch-service/internal/entity"
)

const maxSubjectNameRunes = 60

func formatSubject(n entity.PriceDropNotice) string {
	name := strings.TrimSpace(n.ProductName)
	if name == "" || name == n.ProductURL {
		return "Price drop on a product you follow"
	}
	if utf8.RuneCountInString(name) > maxSubjectNameRunes {
		name = string([]rune(name)[:maxSubjectNameRunes]) + "..."
	}
	return fmt.Sprintf("Price drop: %s", name)
}

// formatPriceDropBody renders the notice. Product names are scraped from
// third-party pages and are stripped of all markup.
func (s *Sender) formatPriceDropBody(n entity.PriceDropNotice, now time.Time) string {
	name := s.policy.Sanitize(n.ProductName)
	if strings.TrimSpace(name) == "" {
		name = "Your product"
	}
	link := s.policy.Sanitize(n.ProductURL)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 640px; margin: 0 auto; padding: 20px; background: #fff; }\n")
	b.WriteString(".product { font-size: 1.2em; font-weight: 600; margin-bottom: 12px; }\n")
	b.WriteString(".old { color: #7f8c8d; text-decoration: line-through; }\n")
	b.WriteString(".new { color: #27ae60; font-size: 1.4em; font-weight: 700; }\n")
	b.WriteString(".saving { color: #27ae60; }\n")
	b.WriteString(".footer { margin-top: 30px; font-size: 0.85em; color: #7f8c8d; }\n")
	b.WriteString("a { color: #2980b9; }\n")
	b.WriteString("@media (prefers-color-scheme: dark) {\n")
	b.WriteString("body { background: #1a1a1a; color: #e0e0e0; }\n")
	b.WriteString(".old, .footer { color: #a0a0a0; }\n")
	b.WriteString("}\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	b.WriteString(fmt.Sprintf("<div class=\"product\">%s</div>\n", name))
	b.WriteString("<p>\n")
	b.WriteString(fmt.Sprintf("<span class=\"old\">%s</span> &rarr; <span class=\"new\">%s</span>\n", formatPrice(n.OldPrice), formatPrice(n.NewPrice)))
	b.WriteString("</p>\n")
	if saving := n.OldPrice - n.NewPrice; saving > 0 && n.OldPrice > 0 {
		b.WriteString(fmt.Sprintf("<p class=\"saving\">You save %s (%.0f%%)</p>\n", formatPrice(saving), saving/n.OldPrice*100))
	}
	b.WriteString(fmt.Sprintf("<p><a href=\"%s\">View the product</a></p>\n", link))

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("Checked %s UTC. Prices can change at any time.\n", now.Format("Jan 2, 2006 at 3:04 PM")))
	b.WriteString("</div>\n")
	b.WriteString("</body>\n</html>")

	return b.String()
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
