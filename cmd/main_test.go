package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"smartchunk/chunk"
	"smartchunk/config"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunBaselineWritesJSONL(t *testing.T) {
	path := writeInput(t, strings.Repeat("alpha beta gamma ", 200))

	var buf bytes.Buffer
	cfg := config.Default()
	if err := run(cfg, zap.NewNop(), path, "text", "naive", &buf); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	var ids []int
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var c chunk.Chunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("output line is not a chunk record: %v", err)
		}
		ids = append(ids, c.ID)
	}
	if len(ids) < 2 {
		t.Fatalf("expected multiple chunk lines, got %d", len(ids))
	}
	for i, id := range ids {
		if id != i+1 {
			t.Errorf("line %d has id %d", i, id)
		}
	}
}

func TestRunUnknownBaselineReturnsError(t *testing.T) {
	path := writeInput(t, "some text")

	var buf bytes.Buffer
	err := run(config.Default(), zap.NewNop(), path, "text", "bogus", &buf)
	if err == nil {
		t.Fatal("expected error for unknown baseline")
	}
	if buf.Len() != 0 {
		t.Errorf("output written despite error: %q", buf.String())
	}
}

func TestRunMissingInputReturnsError(t *testing.T) {
	var buf bytes.Buffer
	missing := filepath.Join(t.TempDir(), "absent.txt")
	if err := run(config.Default(), zap.NewNop(), missing, "text", "naive", &buf); err == nil {
		t.Fatal("expected error for missing input file")
	}
}
