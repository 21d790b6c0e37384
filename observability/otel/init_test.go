package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" authorization = Bearer abc , ,broken, =x,tenant=seller")
	require.Equal(t, map[string]string{"authorization": "Bearer abc", "tenant": "seller"}, got)
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "sellerd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
