package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "prodcat-test"})

	ctx := base.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetProductID(ctx, 42)

	With(Fields{FieldCount: 3}).Info(ctx, "hydrated %d images", 3)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	checks := map[string]interface{}{
		"service":      "prodcat-test",
		FieldRequestID: "req-1",
		FieldProductID: float64(42),
		FieldCount:     float64(3),
		"message":      "hydrated 3 images",
		"level":        "info",
	}
	for key, want := range checks {
		if line[key] != want {
			t.Errorf("%s = %v, want %v", key, line[key], want)
		}
	}
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})
	ctx := l.WithContext(context.Background())

	CtxInfo(ctx, "dropped")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}
	CtxWarn(ctx, "kept")
	if buf.Len() == 0 {
		t.Error("warn line missing")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for a bare context")
	}
}
