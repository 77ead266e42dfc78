package output

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders markdown for terminal output and recreates the renderer when wrap width changes.
type MarkdownRenderer struct {
	// Style names a glamour standard style; blank means "dark".
	Style string

	width    int
	renderer *glamour.TermRenderer
}

// Render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *MarkdownRenderer) Render(markdown string, width int) (string, error) {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", nil
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		style := strings.TrimSpace(r.Style)
		if style == "" {
			style = "dark"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return "", err
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n") + "\n", nil
}
