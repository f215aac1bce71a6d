package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := New(in, "").GetLevel(); got != want {
			t.Errorf("New(%q).GetLevel() = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bot.log")
	l := New("info", file)
	l.Info().Msg("hello")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}
