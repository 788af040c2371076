package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	prod := newLogger(&buf, "prod")
	prod.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug не должен писаться вне dev: %s", buf.String())
	}

	dev := Component(newLogger(&buf, "dev"), "scheduler")
	dev.Debug().Msg("visible")
	out := buf.String()
	if !strings.Contains(out, `"component":"scheduler"`) || !strings.Contains(out, "visible") {
		t.Fatalf("неожиданный вывод: %s", out)
	}
}
