package domain

// SegmentKind distingue texto plano de bloques de codigo.
type SegmentKind string

const (
	SegmentPlain SegmentKind = "text"
	SegmentCode  SegmentKind = "code"
)

// ContentSegment es una porcion renderizable del contenido de un mensaje.
// Language solo aplica a SegmentCode.
type ContentSegment struct {
	Kind     SegmentKind `json:"type"`
	Language string      `json:"language,omitempty"`
	Text     string      `json:"content"`
}

// Plain construye un segmento de texto plano.
func Plain(text string) ContentSegment {
	return ContentSegment{Kind: SegmentPlain, Text: text}
}

// Code construye un segmento de codigo.
func Code(language, text string) ContentSegment {
	return ContentSegment{Kind: SegmentCode, Language: language, Text: text}
}
