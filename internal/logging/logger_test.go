package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("release builds log JSON with build attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Options{AppEnv: "prod", Level: slog.LevelInfo, Version: "1.2.3", AppName: "envmon"})

		logger.Debug("hidden")
		logger.Info("hello", "n", 1)

		var got map[string]any
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not one JSON line: %v (%q)", err, buf.String())
		}
		for k, want := range map[string]any{"msg": "hello", "app": "envmon", "version": "1.2.3", "env": "prod"} {
			if got[k] != want {
				t.Errorf("%s = %v, want %v", k, got[k], want)
			}
		}
	})

	t.Run("dev builds use the console handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Options{AppEnv: "dev", Level: slog.LevelDebug, Version: "dev", AppName: "envctl"})

		logger.Debug("visible")

		out := buf.String()
		if !strings.Contains(out, "visible") || !strings.Contains(out, "envctl") {
			t.Errorf("output = %q", out)
		}
		if strings.HasPrefix(out, "{") {
			t.Errorf("output = %q, want console format", out)
		}
	})
}
