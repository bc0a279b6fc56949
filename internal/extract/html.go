package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "tr": true,
	"table": true, "section": true, "article": true, "header": true,
	"footer": true, "dl": true, "dt": true, "dd": true, "blockquote": true,
	"figure": true, "figcaption": true, "main": true, "aside": true,
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"head": true, "template": true, "iframe": true, "form": true,
}

// HTMLToMarkdown renders an HTML document as line-oriented markdown so that
// the card extractor can treat scraped HTML and scraped markdown alike.
// Headings become "## " lines and anchors become [label](absolute-url).
func HTMLToMarkdown(body string, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	render(&b, doc.Find("body"), base)
	return tidy(b.String()), nil
}

func render(b *strings.Builder, s *goquery.Selection, base *url.URL) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(strings.Join(strings.Fields(c.Text()), " "))
			b.WriteString(" ")
		case name == "#comment" || skipElements[name]:
		case name == "br":
			b.WriteString("\n")
		case len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6':
			b.WriteString("\n## ")
			render(b, c, base)
			b.WriteString("\n")
		case name == "a":
			renderLink(b, c, base)
		case blockElements[name]:
			b.WriteString("\n")
			render(b, c, base)
			b.WriteString("\n")
		default:
			render(b, c, base)
		}
	})
}

// renderLink writes an anchor. Anchors that wrap whole cards are rendered as
// their content followed by the link on its own line.
func renderLink(b *strings.Builder, c *goquery.Selection, base *url.URL) {
	href, _ := c.Attr("href")
	abs := resolve(href, base)
	if c.Find("h1,h2,h3,h4,h5,h6,p,div,li").Length() > 0 {
		render(b, c, base)
		if abs != "" {
			fmt.Fprintf(b, "\n[link](%s)\n", abs)
		}
		return
	}
	label := strings.Join(strings.Fields(c.Text()), " ")
	if abs == "" {
		b.WriteString(label + " ")
		return
	}
	fmt.Fprintf(b, "[%s](%s) ", strings.NewReplacer("[", "(", "]", ")").Replace(label), abs)
}

func tidy(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "##" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
