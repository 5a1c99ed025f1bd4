package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		cli      string
		envLevel string
		envJSON  string
		want     Settings
	}{
		{
			name: "default",
			want: Settings{Level: DefaultLevel, Source: "default"},
		},
		{
			name:     "environment",
			envLevel: "debug",
			want:     Settings{Level: "debug", Source: EnvLogLevel},
		},
		{
			name:     "cli wins over environment",
			cli:      "trace",
			envLevel: "debug",
			want:     Settings{Level: "trace", Source: "CLI --log-level"},
		},
		{
			name: "json with level",
			cli:  "json:debug",
			want: Settings{Level: "debug", JSON: true, Source: "CLI --log-level"},
		},
		{
			name: "json alone",
			cli:  "json",
			want: Settings{Level: "info", JSON: true, Source: "CLI --log-level"},
		},
		{
			name:    "json from environment",
			envJSON: "1",
			want:    Settings{Level: DefaultLevel, JSON: true, Source: "default"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tt.envLevel)
			t.Setenv(EnvJSONLog, tt.envJSON)

			if got := Resolve(tt.cli); got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.cli, got, tt.want)
			}
		})
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	if got := GetLogLevel(); got != DefaultLevel {
		t.Errorf("GetLogLevel() = %q, want %q", got, DefaultLevel)
	}

	t.Setenv(EnvLogLevel, "error")
	if got := GetLogLevel(); got != "error" {
		t.Errorf("GetLogLevel() = %q, want %q", got, "error")
	}
}

func TestLoggerPrefix(t *testing.T) {
	t.Setenv(EnvJSONLog, "")
	var buf bytes.Buffer
	logger := Settings{Level: "info"}.Logger("test", &buf)

	logger.Info("region built", "slots", 2)
	logger.Debug("not shown")

	out := buf.String()
	if !strings.HasPrefix(out, Prefix) {
		t.Errorf("output %q missing prefix %q", out, Prefix)
	}
	if !strings.Contains(out, "region built") || !strings.Contains(out, "slots=2") {
		t.Errorf("output %q missing message or field", out)
	}
	if strings.Contains(out, "not shown") {
		t.Errorf("output %q contains a debug line at info level", out)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Settings{Level: "info", JSON: true}.Logger("test", &buf)

	logger.Info("region built", "slots", 2)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output %q is not JSON: %v", buf.String(), err)
	}
	if entry["@message"] != "region built" {
		t.Errorf("@message = %v", entry["@message"])
	}
	if entry["slots"] != float64(2) {
		t.Errorf("slots = %v", entry["slots"])
	}
}

func TestNewLoggerJSONLevel(t *testing.T) {
	t.Setenv(EnvJSONLog, "")
	var buf bytes.Buffer
	logger := NewLogger("test", "json:debug", &buf)

	if !logger.IsDebug() || logger.IsTrace() {
		t.Errorf("level = %v, want debug", logger.GetLevel())
	}
	logger.Debug("slot loaded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output %q is not JSON: %v", buf.String(), err)
	}
	if entry["@level"] != "debug" {
		t.Errorf("@level = %v", entry["@level"])
	}
}

func TestOutput(t *testing.T) {
	t.Setenv(EnvLogPath, "")
	if w, done := Output(); w != os.Stderr {
		t.Errorf("Output() = %v, want stderr", w)
	} else {
		done()
	}

	path := filepath.Join(t.TempDir(), "bootdesc.log")
	t.Setenv(EnvLogPath, path)
	w, done := Output()
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatal(err)
	}
	done()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line\n" {
		t.Errorf("log file = %q", data)
	}
}
