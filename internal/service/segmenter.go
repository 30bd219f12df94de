package service

import (
	"regexp"

	"chat-llm/internal/domain"
)

// DefaultCodeLanguage se asigna a bloques sin etiqueta de lenguaje.
const DefaultCodeLanguage = "plaintext"

// fenceRe reconoce ```tag\n cuerpo ```. El cuerpo es no-greedy y puede abarcar lineas.
var fenceRe = regexp.MustCompile("```(\\w+)?\\n((?s:.*?))```")

// Segment divide content en segmentos de texto y bloques de codigo en orden de documento.
// Un fence sin cierre queda como texto plano, marcadores incluidos.
func Segment(content string) []domain.ContentSegment {
	matches := fenceRe.FindAllStringSubmatchIndex(content, -1)
	segments := make([]domain.ContentSegment, 0, 2*len(matches)+1)

	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > last {
			segments = append(segments, domain.Plain(content[last:start]))
		}

		language := DefaultCodeLanguage
		if m[2] >= 0 && m[3] > m[2] {
			language = content[m[2]:m[3]]
		}
		segments = append(segments, domain.Code(language, content[m[4]:m[5]]))
		last = end
	}

	if last < len(content) {
		segments = append(segments, domain.Plain(content[last:]))
	}
	return segments
}
