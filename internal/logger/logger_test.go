package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// capture redirects stdout around fn and returns everything printed.
func capture(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestLevels_IncludeTagAndMessage(t *testing.T) {
	out := capture(t, func() {
		Info("Scan", "starting")
		Success("DB", "opened")
		Warn("Impact", "large order")
		Error("Analyze", "no price data")
	})
	for _, want := range []string{"[Scan]", "starting", "[DB]", "opened", "[Impact]", "[Analyze]", "no price data"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestBanner_EmptyVersionFallsBackToDev(t *testing.T) {
	out := capture(t, func() {
		Banner("")
	})
	if !strings.Contains(out, "dev") {
		t.Error("Banner(\"\") output missing dev fallback version")
	}
	out = capture(t, func() {
		Banner("v1.2.0")
	})
	if !strings.Contains(out, "v1.2.0") {
		t.Error("Banner output missing version")
	}
}

func TestSectionAndStats(t *testing.T) {
	out := capture(t, func() {
		Section("Top opportunities")
		Stats("Craft cost", 12345)
	})
	if !strings.Contains(out, "Top opportunities") {
		t.Error("Section output missing title")
	}
	if !strings.Contains(out, "Craft cost") || !strings.Contains(out, "12345") {
		t.Error("Stats output missing key or value")
	}
}
