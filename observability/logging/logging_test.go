package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := Setup("sellerd", "test", Options{Level: "debug", Writer: &buf})
	defer closer.Close()

	logger.Debug("purchase applied", slog.Uint64("height", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "purchase applied", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "sellerd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
	require.EqualValues(t, 3, line["height"])
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := Setup("sellerd", "", Options{Level: "warn", Writer: &buf})
	logger.Info("hidden")
	require.Zero(t, buf.Len())
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sellerd.log")
	logger, closer := Setup("sellerd", "", Options{File: path, MaxSizeMB: 1})
	logger.Info("to file")
	require.NoError(t, closer.Close())
	require.FileExists(t, path)
}

func TestRedaction(t *testing.T) {
	require.Equal(t, RedactedValue, Redact("secret"))
	require.Equal(t, " ", Redact(" "))
	require.Equal(t, RedactedValue, MaskField("jwt", "abc").Value.String())
	require.Equal(t, "seller_call", MaskField("Method", "seller_call").Value.String())
	require.Equal(t, "", MaskField("jwt_secret", "").Value.String())
}
