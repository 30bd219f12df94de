package render

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"chat-llm/internal/domain"
)

var (
	codeBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	langBadge  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true)
	gutter     = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(4).
			Align(lipgloss.Right).
			MarginRight(1)
)

// TerminalRenderer dibuja segmentos para una terminal de 256 colores.
type TerminalRenderer struct {
	styleName string
	maxWidth  int
}

func NewTerminalRenderer(styleName string, maxWidth int) *TerminalRenderer {
	if strings.TrimSpace(styleName) == "" {
		styleName = "monokai"
	}
	if maxWidth < 20 {
		maxWidth = 80
	}
	return &TerminalRenderer{styleName: styleName, maxWidth: maxWidth}
}

func (r *TerminalRenderer) Render(segments []domain.ContentSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind != domain.SegmentCode {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(r.codeBlock(seg.Language, seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *TerminalRenderer) codeBlock(tag, text string) string {
	code := strings.TrimSpace(text)
	lang := NormalizeLanguage(tag)

	lines := strings.Split(r.highlight(code, lang), "\n")
	for i, line := range lines {
		lines[i] = gutter.Render(strconv.Itoa(i + 1)) + line
	}
	body := langBadge.Render(lang) + "\n" + strings.Join(lines, "\n")
	return codeBorder.MaxWidth(r.maxWidth).Render(body)
}

// highlight devuelve el codigo sin colores si chroma falla.
func (r *TerminalRenderer) highlight(code, language string) string {
	iterator, err := lexerFor(language).Tokenise(nil, code)
	if err != nil {
		return code
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, styles.Get(r.styleName), iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
