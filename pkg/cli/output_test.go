package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextFormatter(t *testing.T) {
	f := NewFormatter(FormatText)

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, "valid"); err != nil {
		t.Fatalf("FormatTo: %v", err)
	}
	if got := buf.String(); got != "valid\n" {
		t.Errorf("FormatTo output = %q", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	f := NewFormatter(FormatJSON)

	data := map[string]int{"rules": 3}
	out, err := f.Format(data)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(string(out), "\n") {
		t.Error("JSON output not indented")
	}

	var decoded map[string]int
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["rules"] != 3 {
		t.Errorf("round trip = %v", decoded)
	}
}

func TestNewFormatter_UnknownDefaultsToText(t *testing.T) {
	if _, ok := NewFormatter("yaml").(*TextFormatter); !ok {
		t.Error("unknown format did not fall back to text")
	}
}
