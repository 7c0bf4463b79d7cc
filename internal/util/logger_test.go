package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   LogLevel
		want zerolog.Level
	}{
		{TraceLevel, zerolog.TraceLevel},
		{DebugLevel, zerolog.DebugLevel},
		{InfoLevel, zerolog.InfoLevel},
		{WarnLevel, zerolog.WarnLevel},
		{ErrorLevel, zerolog.ErrorLevel},
		{42, zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toZerologLevel(tt.in))
	}
}

func TestZerologWriter_StripsStdlogPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := zerologWriter{logger: zerolog.New(&buf), level: zerolog.WarnLevel}

	n, err := w.Write([]byte("2024/01/01 12:00:00 fuse: mount failed\n"))

	assert.NoError(t, err)
	assert.Equal(t, len("2024/01/01 12:00:00 fuse: mount failed\n"), n)
	assert.Contains(t, buf.String(), `"message":"mount failed"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestPointer(t *testing.T) {
	t.Parallel()

	p := Pointer(5)
	*p = 6
	assert.Equal(t, 6, *Pointer(*p))
}

// Not parallel: swaps the global logger
func TestGetLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	InitializeLogger(DebugLevel, &buf)
	defer InitializeLogger(InfoLevel, io.Discard)

	logger := GetLogger("Kernel.Cat")
	logger.Debug().Str("path", "/etc").Msg("Cat failed")

	assert.Contains(t, buf.String(), "Cat failed")
	assert.Contains(t, buf.String(), "Kernel.Cat")
	assert.Contains(t, buf.String(), "/etc")
}
