package zenwhisper

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// RenderMarkdown converts a small markdown subset to HTML: ATX headings,
// bold, italic, inline code, links, unordered lists, and paragraphs. Input
// is HTML-escaped before inline formatting is applied, so note bodies can
// never inject markup.
func RenderMarkdown(src string) string {
	var out strings.Builder
	lines := strings.Split(src, "\n")

	var para []string
	var list []string

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		out.WriteString("<p>" + renderInline(strings.Join(para, " ")) + "</p>\n")
		para = nil
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		out.WriteString("<ul>\n")
		for _, item := range list {
			out.WriteString("<li>" + renderInline(item) + "</li>\n")
		}
		out.WriteString("</ul>\n")
		list = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushPara()
			flushList()

		case strings.HasPrefix(trimmed, "#"):
			flushPara()
			flushList()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' && level < 6 {
				level++
			}
			text := strings.TrimSpace(trimmed[level:])
			out.WriteString(fmt.Sprintf("<h%d>%s</h%d>\n", level, renderInline(text), level))

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flushPara()
			list = append(list, strings.TrimSpace(trimmed[2:]))

		default:
			flushList()
			para = append(para, trimmed)
		}
	}
	flushPara()
	flushList()

	return out.String()
}

var (
	mdCode   = regexp.MustCompile("`([^`]+)`")
	mdBold   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic = regexp.MustCompile(`\*([^*]+)\*`)
	mdLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

func renderInline(text string) string {
	s := html.EscapeString(text)
	s = mdCode.ReplaceAllString(s, "<code>$1</code>")
	s = mdBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = mdItalic.ReplaceAllString(s, "<em>$1</em>")
	s = mdLink.ReplaceAllString(s, `<a href="$2">$1</a>`)
	return s
}
