package llm

import (
	"context"
	"io"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Fragments []string
	Err       error
	StreamErr error

	Calls        int
	LastMessages []Message
	LastStream   *SliceStream
}

func (m *MockClient) Complete(_ context.Context, messages []Message) (FragmentStream, error) {
	m.Calls++
	m.LastMessages = append([]Message(nil), messages...)
	if m.Err != nil {
		return nil, m.Err
	}
	m.LastStream = &SliceStream{Fragments: m.Fragments, Err: m.StreamErr}
	return m.LastStream, nil
}

// SliceStream entrega fragmentos fijos y, opcionalmente, un error final en lugar de io.EOF.
type SliceStream struct {
	Fragments []string
	Err       error
	Closed    bool
	pos       int
}

func (s *SliceStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Closed {
		return "", ErrStreamClosed
	}
	if s.pos < len(s.Fragments) {
		f := s.Fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", io.EOF
}

func (s *SliceStream) Close() error {
	s.Closed = true
	return nil
}
