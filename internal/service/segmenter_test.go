package service

import (
	"reflect"
	"testing"

	"chat-llm/internal/domain"
)

func TestSegment(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []domain.ContentSegment
	}{
		{
			name:    "plain only",
			content: "hello",
			want:    []domain.ContentSegment{domain.Plain("hello")},
		},
		{
			name:    "empty",
			content: "",
			want:    []domain.ContentSegment{},
		},
		{
			name:    "text code text",
			content: "a\n```js\nconsole.log(1)\n```\nb",
			want: []domain.ContentSegment{
				domain.Plain("a\n"),
				domain.Code("js", "console.log(1)\n"),
				domain.Plain("\nb"),
			},
		},
		{
			name:    "missing language tag",
			content: "```\nx\n```",
			want:    []domain.ContentSegment{domain.Code(DefaultCodeLanguage, "x\n")},
		},
		{
			name:    "two blocks back to back",
			content: "```py\n1\n``````go\n2\n```",
			want: []domain.ContentSegment{
				domain.Code("py", "1\n"),
				domain.Code("go", "2\n"),
			},
		},
		{
			name:    "unterminated fence stays plain",
			content: "look:\n```go\nfunc main() {}",
			want:    []domain.ContentSegment{domain.Plain("look:\n```go\nfunc main() {}")},
		},
		{
			name:    "fence without newline after tag is plain",
			content: "```go func```",
			want:    []domain.ContentSegment{domain.Plain("```go func```")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Segment(tc.content)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestSegment_ConcatenationRestoresBodies(t *testing.T) {
	content := "intro\n```sql\nSELECT 1;\n```\nmiddle\n```\nraw\n```"
	var plain, code string
	for _, seg := range Segment(content) {
		switch seg.Kind {
		case domain.SegmentPlain:
			plain += seg.Text
		case domain.SegmentCode:
			code += seg.Text
		}
	}
	if plain != "intro\n\nmiddle\n" {
		t.Fatalf("unexpected plain text %q", plain)
	}
	if code != "SELECT 1;\nraw\n" {
		t.Fatalf("unexpected code text %q", code)
	}
}
