package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	readChunk    = 4 * 1024
)

// ErrStreamClosed se devuelve al llamar a Next despues de Close.
var ErrStreamClosed = errors.New("stream closed")

// streamEnvelope tolera la ausencia de cualquier nivel de choices[0].delta.content.
type streamEnvelope struct {
	Choices []struct {
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream decodifica un cuerpo text/event-stream en fragmentos de texto.
// No es seguro para uso concurrente: un solo consumidor llama a Next.
type Stream struct {
	body    io.ReadCloser
	reader  io.Reader
	logger  *zap.Logger
	chunk   []byte
	buf     []byte
	pending []string
	done    bool
	err     error
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// NewStream envuelve body. El cuerpo se cierra al agotarse, ante un error,
// al cancelarse el contexto o al llamar a Close.
func NewStream(body io.ReadCloser, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		body:   body,
		reader: transform.NewReader(body, unicode.UTF8.NewDecoder()),
		logger: logger,
		chunk:  make([]byte, readChunk),
	}
}

// Next devuelve el siguiente fragmento no vacio. Al agotarse la fuente devuelve io.EOF.
func (s *Stream) Next(ctx context.Context) (string, error) {
	for {
		if len(s.pending) > 0 {
			fragment := s.pending[0]
			s.pending = s.pending[1:]
			return fragment, nil
		}
		if s.done {
			return "", s.err
		}
		if s.closed {
			s.finish(ErrStreamClosed)
			continue
		}
		if err := ctx.Err(); err != nil {
			s.finish(err)
			continue
		}

		// Un body que no observa el contexto se desbloquea cerrandolo.
		stop := context.AfterFunc(ctx, s.closeBody)
		n, err := s.reader.Read(s.chunk)
		stop()
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
			s.drainLines()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.finish(ctxErr)
				continue
			}
			if errors.Is(err, io.EOF) {
				// Un resto sin salto de linea nunca fue una linea completa.
				s.finish(io.EOF)
				continue
			}
			s.finish(&TransportError{Message: "read stream", Err: err})
		}
	}
}

// Close libera el cuerpo subyacente y descarta fragmentos pendientes. Es idempotente.
func (s *Stream) Close() error {
	s.pending = nil
	return s.release()
}

func (s *Stream) release() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.buf = nil
	s.closeBody()
	return s.closeErr
}

func (s *Stream) closeBody() {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
}

// finish marca el stream como terminado; los fragmentos ya decodificados se
// siguen entregando antes de err.
func (s *Stream) finish(err error) {
	s.done = true
	s.err = err
	if closeErr := s.release(); closeErr != nil {
		s.logger.Debug("close stream body", zap.Error(closeErr))
	}
}

func (s *Stream) drainLines() {
	consumed := 0
	for {
		idx := bytes.IndexByte(s.buf[consumed:], '\n')
		if idx < 0 {
			break
		}
		line := string(s.buf[consumed : consumed+idx])
		consumed += idx + 1

		fragment, err := DecodeLine(line)
		if err != nil {
			s.logger.Debug("dropping malformed stream line", zap.Error(err))
			continue
		}
		if fragment != "" {
			s.pending = append(s.pending, fragment)
		}
	}
	if consumed > 0 {
		s.buf = append(s.buf[:0], s.buf[consumed:]...)
	}
}

// DecodeLine extrae el delta de texto de una linea del stream. Devuelve "" sin
// error para lineas que no llevan contenido (otros campos, lineas vacias,
// [DONE], envelopes sin delta) y *ParseError si el JSON es invalido.
func DecodeLine(line string) (string, error) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", nil
	}
	payload := line[len(dataPrefix):]
	if payload == doneSentinel {
		return "", nil
	}

	var env streamEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", &ParseError{Line: line, Err: err}
	}
	if len(env.Choices) == 0 || env.Choices[0].Delta == nil {
		return "", nil
	}
	return env.Choices[0].Delta.Content, nil
}

// Collect consume el stream completo y devuelve la concatenacion de fragmentos.
func Collect(ctx context.Context, stream FragmentStream) (string, error) {
	defer stream.Close()

	var out strings.Builder
	for {
		fragment, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out.String(), nil
			}
			return out.String(), err
		}
		out.WriteString(fragment)
	}
}
