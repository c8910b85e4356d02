package zenwhisper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	t.Run("headings", func(t *testing.T) {
		assert.Equal(t, "<h1>Title</h1>\n", RenderMarkdown("# Title"))
		assert.Equal(t, "<h3>Sub</h3>\n", RenderMarkdown("### Sub"))
	})

	t.Run("paragraphs join soft-wrapped lines", func(t *testing.T) {
		got := RenderMarkdown("first line\nsecond line\n\nnext paragraph")
		assert.Equal(t, "<p>first line second line</p>\n<p>next paragraph</p>\n", got)
	})

	t.Run("inline formatting", func(t *testing.T) {
		assert.Equal(t, "<p><strong>bold</strong> and <em>italic</em></p>\n",
			RenderMarkdown("**bold** and *italic*"))
		assert.Equal(t, "<p>run <code>go test</code> locally</p>\n",
			RenderMarkdown("run `go test` locally"))
		assert.Equal(t, "<p><a href=\"https://example.com\">docs</a></p>\n",
			RenderMarkdown("[docs](https://example.com)"))
	})

	t.Run("unordered lists", func(t *testing.T) {
		got := RenderMarkdown("- milk\n- eggs\n* bread")
		assert.Equal(t, "<ul>\n<li>milk</li>\n<li>eggs</li>\n<li>bread</li>\n</ul>\n", got)
	})

	t.Run("list followed by paragraph", func(t *testing.T) {
		got := RenderMarkdown("- item\n\nafter the list")
		assert.Equal(t, "<ul>\n<li>item</li>\n</ul>\n<p>after the list</p>\n", got)
	})

	t.Run("html is escaped", func(t *testing.T) {
		got := RenderMarkdown("<script>alert(1)</script>")
		assert.NotContains(t, got, "<script>")
		assert.Contains(t, got, "&lt;script&gt;")
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", RenderMarkdown(""))
	})
}
