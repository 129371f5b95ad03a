package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "rds")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}
