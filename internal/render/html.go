package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"chat-llm/internal/domain"
)

const DefaultHTMLStyle = "github"

// Block es un segmento listo para el navegador.
type Block struct {
	Type      domain.SegmentKind `json:"type"`
	Content   string             `json:"content"`
	Language  string             `json:"language,omitempty"`
	Direction string             `json:"direction,omitempty"`
	HTML      string             `json:"html,omitempty"`
	Lines     int                `json:"lines,omitempty"`
}

// HTMLRenderer resalta bloques de codigo con clases CSS de chroma.
type HTMLRenderer struct {
	style     *chroma.Style
	formatter *html.Formatter
}

func NewHTMLRenderer(styleName string) *HTMLRenderer {
	if strings.TrimSpace(styleName) == "" {
		styleName = DefaultHTMLStyle
	}
	return &HTMLRenderer{
		style:     styles.Get(styleName),
		formatter: html.New(html.WithClasses(true), html.TabWidth(4)),
	}
}

// Render convierte segmentos en bloques. Texto plano lleva su direccion;
// el codigo se recorta y se resalta.
func (r *HTMLRenderer) Render(segments []domain.ContentSegment) ([]Block, error) {
	out := make([]Block, 0, len(segments))
	for _, seg := range segments {
		if seg.Kind != domain.SegmentCode {
			out = append(out, Block{
				Type:      domain.SegmentPlain,
				Content:   seg.Text,
				Direction: Direction(seg.Text),
			})
			continue
		}

		code := strings.TrimSpace(seg.Text)
		lang := NormalizeLanguage(seg.Language)
		highlighted, err := r.highlight(code, lang)
		if err != nil {
			return nil, fmt.Errorf("highlight %s block: %w", lang, err)
		}
		out = append(out, Block{
			Type:      domain.SegmentCode,
			Content:   code,
			Language:  lang,
			Direction: DirectionLTR,
			HTML:      highlighted,
			Lines:     LineCount(code),
		})
	}
	return out, nil
}

// WriteCSS escribe la hoja de estilos de las clases usadas en Render.
func (r *HTMLRenderer) WriteCSS(w io.Writer) error {
	return r.formatter.WriteCSS(w, r.style)
}

func (r *HTMLRenderer) highlight(code, language string) (string, error) {
	iterator, err := lexerFor(language).Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func lexerFor(language string) chroma.Lexer {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// LineCount cuenta las lineas para el gutter; un bloque vacio tiene una.
func LineCount(code string) int {
	return strings.Count(code, "\n") + 1
}
