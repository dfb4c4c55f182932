package tool

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunReturnsStdout(t *testing.T) {
	r := NewRunner(0)
	out, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "hello" {
		t.Errorf("stdout = %q, want hello", out)
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	r := NewRunner(0)
	_, err := r.Run(context.Background(), "sh", "-c", "echo 'ERROR: no formats found' >&2; exit 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsToolError(err) {
		t.Fatalf("err = %T, want *ToolError", err)
	}
	if !strings.Contains(err.Error(), "ERROR: no formats found") {
		t.Errorf("error does not carry stderr verbatim: %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(50 * time.Millisecond)
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error does not report the timeout: %v", err)
	}
}

func TestRunLinesStreams(t *testing.T) {
	r := NewRunner(0)
	var lines []string
	err := r.RunLines(context.Background(), func(line string) {
		lines = append(lines, line)
	}, "sh", "-c", "echo one; echo two")
	if err != nil {
		t.Fatalf("RunLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("lines = %v", lines)
	}
}

func TestIsToolError(t *testing.T) {
	if IsToolError(context.Canceled) {
		t.Error("plain error classified as tool error")
	}
	if !IsToolError(&ToolError{Tool: "ffmpeg"}) {
		t.Error("ToolError not recognized")
	}
}
