package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"chat-llm/internal/llm"
)

func TestAccumulate_PublishesRunningValues(t *testing.T) {
	stream := &llm.SliceStream{Fragments: []string{"a", "", "b", "c"}}
	var running, fragments []string

	got, err := Accumulate(context.Background(), stream, func(fragment, content string) {
		fragments = append(fragments, fragment)
		running = append(running, content)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if !reflect.DeepEqual(running, []string{"a", "ab", "abc"}) {
		t.Fatalf("unexpected running values %q", running)
	}
	if !reflect.DeepEqual(fragments, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected fragments %q", fragments)
	}
	if !stream.Closed {
		t.Fatalf("expected stream closed")
	}
}

func TestAccumulate_EmptyStream(t *testing.T) {
	stream := &llm.SliceStream{}
	_, err := Accumulate(context.Background(), stream, nil)
	var empty *llm.EmptyResponseError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyResponseError, got %v", err)
	}
	if !stream.Closed {
		t.Fatalf("expected stream closed")
	}
}

func TestAccumulate_PropagatesSourceError(t *testing.T) {
	boom := &llm.TransportError{Message: "read stream", Err: errors.New("reset")}
	stream := &llm.SliceStream{Fragments: []string{"a"}, Err: boom}

	var calls int
	_, err := Accumulate(context.Background(), stream, func(string, string) { calls++ })
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one publish before the error, got %d", calls)
	}
	if !stream.Closed {
		t.Fatalf("expected stream closed on error")
	}
}

func TestAccumulate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stream := &llm.SliceStream{Fragments: []string{"a"}}
	if _, err := Accumulate(ctx, stream, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !stream.Closed {
		t.Fatalf("expected stream closed")
	}
}
