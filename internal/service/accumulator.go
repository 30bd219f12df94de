package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"chat-llm/internal/llm"
)

// PublishFunc recibe cada fragmento y el valor acumulado hasta ese momento.
type PublishFunc func(fragment, content string)

// Accumulate consume stream hasta agotarlo, concatenando los fragmentos en orden
// y publicando el acumulado tras cada uno. El stream se cierra en cualquier salida.
// Un stream exitoso sin contenido devuelve *llm.EmptyResponseError.
func Accumulate(ctx context.Context, stream llm.FragmentStream, publish PublishFunc) (string, error) {
	defer stream.Close()

	var acc strings.Builder
	for {
		fragment, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if fragment == "" {
			continue
		}
		acc.WriteString(fragment)
		if publish != nil {
			publish(fragment, acc.String())
		}
	}

	if acc.Len() == 0 {
		return "", &llm.EmptyResponseError{}
	}
	return acc.String(), nil
}
