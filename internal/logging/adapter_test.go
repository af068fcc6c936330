package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedAdapter() (*SlogAdapter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSlogAdapter(New(&buf, FormatJSON, true)), &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestNewSlogAdapter_DefaultsToSlogDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogAdapter(nil).Logger())
	assert.Equal(t, slog.Default(), DefaultLogger().Logger())

	var _ Logger = (*SlogAdapter)(nil)
}

func TestSlogAdapter_Levels(t *testing.T) {
	a, buf := newBufferedAdapter()

	tests := []struct {
		level string
		log   func(string, ...any)
	}{
		{"DEBUG", a.Debug},
		{"INFO", a.Info},
		{"WARN", a.Warn},
		{"ERROR", a.Error},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			tt.log("metrics server started", "addr", ":9090")
			rec := lastRecord(t, buf)
			assert.Equal(t, tt.level, rec["level"])
			assert.Equal(t, "metrics server started", rec["msg"])
			assert.Equal(t, ":9090", rec["addr"])
		})
	}
}

func TestSlogAdapter_MasksSecrets(t *testing.T) {
	a, buf := newBufferedAdapter()

	a.Info("exchanged code",
		"auth_token", "ya29.secret",
		"code", "4/abc",
		slog.String("refresh_token", "1//refresh"),
		"account", "user@example.com",
		"attempts", 2,
	)

	rec := lastRecord(t, buf)
	assert.Equal(t, SanitizeToken("ya29.secret"), rec["auth_token"])
	assert.Equal(t, SanitizeToken("4/abc"), rec["code"])
	assert.Equal(t, SanitizeToken("1//refresh"), rec["refresh_token"])
	assert.Equal(t, "user@example.com", rec["account"])
	assert.Equal(t, float64(2), rec["attempts"])
	assert.NotContains(t, buf.String(), "ya29.secret")
}

func TestSlogAdapter_With(t *testing.T) {
	a, buf := newBufferedAdapter()

	a.With("component", "metrics", "token", "t0k").Info("ready")
	rec := lastRecord(t, buf)
	assert.Equal(t, "metrics", rec["component"])
	assert.Equal(t, SanitizeToken("t0k"), rec["token"])
}

func TestMaskArgs_DoesNotModifyInput(t *testing.T) {
	in := []any{"token", "secret-value", "odd"}
	out := maskArgs(in)
	assert.Equal(t, "secret-value", in[1])
	assert.Equal(t, SanitizeToken("secret-value"), out[1])
	assert.Equal(t, "odd", out[2])
}
