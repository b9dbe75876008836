package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolveListenAddress covers override, port extraction, and error cases.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("server.example.com:8473", "")
	require.NoError(t, err)
	require.Equal(t, ":8473", addr)

	addr, err = resolveListenAddress("server.example.com:8473", "127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port-here", "")
	require.Error(t, err)
}
