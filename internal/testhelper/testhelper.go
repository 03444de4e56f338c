// Package testhelper holds fixtures shared by package tests: YAML case files
// and loggers that write through testing.T.
package testhelper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

// LoadYAML decodes the fixture at path into out. Unknown keys fail the test so
// a typo in a case file cannot silently drop an expectation.
func LoadYAML(t testing.TB, path string, out any) {
	t.Helper()

	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
}

// Logger returns a debug logger whose output is attached to t.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
}
