package llm

import (
	"errors"
	"fmt"
)

// ConfigurationError indica que falta una credencial o ajuste obligatorio.
// Se produce antes de cualquier actividad de red.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// TransportError indica que la respuesta no trae un cuerpo legible o que la
// lectura del stream fallo a mitad de camino.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError representa un status no exitoso o un error reportado por el proveedor.
type UpstreamError struct {
	Message string
	Status  int
	Code    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// ParseError describe una linea "data:" que no se pudo decodificar. El decoder
// la descarta y sigue; nunca llega al consumidor del stream.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse stream line: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EmptyResponseError indica que el stream termino sin contenido.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string {
	return "no content received from the stream"
}

// isClientError reporta si err ya es uno de los tipos propios del cliente.
func isClientError(err error) bool {
	var (
		cfgErr       *ConfigurationError
		transportErr *TransportError
		upstreamErr  *UpstreamError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &transportErr) || errors.As(err, &upstreamErr)
}
