package llm

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// chunkBody entrega cada chunk en un Read separado, como un body HTTP chunked.
type chunkBody struct {
	chunks [][]byte
	closed int
	err    error
}

func newChunkBody(chunks ...string) *chunkBody {
	b := &chunkBody{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.closed++
	return nil
}

func drain(t *testing.T, s *Stream) ([]string, error) {
	t.Helper()
	var out []string
	for {
		f, err := s.Next(context.Background())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, f)
	}
}

func TestStream_YieldsFragmentsInOrder(t *testing.T) {
	body := newChunkBody(
		"data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n",
		"data: [DONE]\n",
	)
	s := NewStream(body, nil)

	got, err := drain(t, s)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"He", "llo"}) {
		t.Fatalf("unexpected fragments: %q", got)
	}
	if body.closed != 1 {
		t.Fatalf("expected body closed once, got %d", body.closed)
	}
}

func TestStream_DoneSentinelDoesNotTerminate(t *testing.T) {
	body := newChunkBody(
		"data: [DONE]\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n",
	)
	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"late"}) {
		t.Fatalf("expected fragment after [DONE], got %q", got)
	}
}

func TestStream_DropsMalformedLines(t *testing.T) {
	body := newChunkBody(
		"data: {not json}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n",
	)
	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"ok"}) {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestStream_LinesSplitAcrossChunks(t *testing.T) {
	line := "data: {\"choices\":[{\"delta\":{\"content\":\"abc\"}}]}\n"
	body := newChunkBody(line[:10], line[10:25], line[25:], "\n", "event: ping\n", ": comment\n")
	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"abc"}) {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestStream_MultiByteCharacterSplitAcrossChunks(t *testing.T) {
	full := "data: {\"choices\":[{\"delta\":{\"content\":\"سلام é\"}}]}\n"
	cut := strings.Index(full, "سلام") + 1
	body := newChunkBody(full[:cut], full[cut:])

	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"سلام é"}) {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestStream_EnvelopeWithoutDeltaYieldsNothing(t *testing.T) {
	body := newChunkBody(
		"data: {\"choices\":[{\"delta\":{}}]}\n",
		"data: {\"choices\":[]}\n",
		"data: {\"choices\":[{\"finish_reason\":\"stop\"}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\n",
		"data: {}\n",
		"data: null\n",
	)
	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no fragments, got %q", got)
	}
}

func TestStream_TrailingPartialLineIsDiscarded(t *testing.T) {
	body := newChunkBody(
		"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}",
	)
	got, err := drain(t, NewStream(body, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestStream_CancelledContextReleasesBody(t *testing.T) {
	body := newChunkBody("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")
	s := NewStream(body, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if body.closed != 1 {
		t.Fatalf("expected body closed, got %d", body.closed)
	}
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	body := newChunkBody("data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")
	s := NewStream(body, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if body.closed != 1 {
		t.Fatalf("expected single close, got %d", body.closed)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
}

func TestStream_ReadErrorIsTransportError(t *testing.T) {
	body := newChunkBody("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n")
	body.err = errors.New("connection reset")

	got, err := drain(t, NewStream(body, nil))
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected fragments before the error, got %q", got)
	}
	if body.closed != 1 {
		t.Fatalf("expected body closed, got %d", body.closed)
	}
}

func TestDecodeLine(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		want    string
		wantErr bool
	}{
		{name: "content", line: `data: {"choices":[{"delta":{"content":"hi"}}]}`, want: "hi"},
		{name: "blank", line: ""},
		{name: "other field", line: "event: message"},
		{name: "no space after colon", line: `data:{"choices":[{"delta":{"content":"hi"}}]}`},
		{name: "done", line: "data: [DONE]"},
		{name: "malformed", line: "data: {not json}", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeLine(tc.line)
			if tc.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	s := &SliceStream{Fragments: []string{"a", "b", "c"}}
	got, err := Collect(context.Background(), s)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if !s.Closed {
		t.Fatalf("expected stream closed")
	}
}

// blockingBody bloquea Read hasta que se llama a Close, sin mirar ningun contexto.
type blockingBody struct {
	closed chan struct{}
	once   sync.Once
	count  int32
}

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.closed
	return 0, errors.New("read on closed body")
}

func (b *blockingBody) Close() error {
	atomic.AddInt32(&b.count, 1)
	b.once.Do(func() { close(b.closed) })
	return nil
}

func TestStream_CancelUnblocksReadThatIgnoresContext(t *testing.T) {
	body := &blockingBody{closed: make(chan struct{})}
	s := NewStream(body, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Next still blocked after the context was cancelled")
	}
	if got := atomic.LoadInt32(&body.count); got != 1 {
		t.Fatalf("expected body closed once, got %d", got)
	}
}
