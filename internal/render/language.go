package render

import (
	"strings"
	"unicode"
)

const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"

	fallbackLanguage = "javascript"
)

var languageAliases = map[string]string{
	"js":        "javascript",
	"jsx":       "jsx",
	"ts":        "typescript",
	"tsx":       "tsx",
	"py":        "python",
	"css":       "css",
	"html":      "html",
	"json":      "javascript",
	"plaintext": "javascript",
}

// NormalizeLanguage traduce la etiqueta del fence al lenguaje que se resalta.
// Etiquetas desconocidas caen en javascript.
func NormalizeLanguage(tag string) string {
	if lang, ok := languageAliases[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return lang
	}
	return fallbackLanguage
}

// Direction devuelve ltr si el texto contiene alguna letra ASCII y rtl en otro caso.
func Direction(text string) string {
	for _, r := range text {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return DirectionLTR
		}
	}
	return DirectionRTL
}
