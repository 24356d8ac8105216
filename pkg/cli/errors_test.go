package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("config.yaml", "missing storage path")
	if !strings.Contains(err.Error(), "config.yaml") {
		t.Errorf("Error() = %q, want path included", err.Error())
	}

	err = NewConfigError("", "missing storage path")
	if strings.Contains(err.Error(), "in ") {
		t.Errorf("Error() = %q, want no path segment", err.Error())
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("listen failed")
	err := NewCommandError("run", cause)

	if !strings.Contains(err.Error(), "run") {
		t.Errorf("Error() = %q, want command name included", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the wrapped cause")
	}
}
