package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func reset() {
	CloseAll()
	opts = Options{}
	logLevel = LevelInfo
}

func TestDisabledIsNoOp(t *testing.T) {
	t.Cleanup(reset)
	if err := Configure(Options{DebugMode: false}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	l := Get(CategoryParser)
	l.Info("should not be written")
	if l.logger != nil {
		t.Error("disabled logging should produce a no-op logger")
	}
}

func TestWritesToCategoryFile(t *testing.T) {
	t.Cleanup(reset)
	dir := t.TempDir()
	if err := Configure(Options{DebugMode: true, Level: "debug", Dir: dir}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	Get(CategoryAssembler).Info("assembled %d blocks", 3)
	CloseAll()

	files, err := filepath.Glob(filepath.Join(dir, "*_assembler.log"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one assembler log file, got %v (err=%v)", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "assembled 3 blocks") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestCategoryFilter(t *testing.T) {
	t.Cleanup(reset)
	dir := t.TempDir()
	err := Configure(Options{
		DebugMode:  true,
		Dir:        dir,
		Categories: map[string]bool{"parser": false},
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if l := Get(CategoryParser); l.logger != nil {
		t.Error("disabled category should produce a no-op logger")
	}
	if l := Get(CategoryValidator); l.logger == nil {
		t.Error("unlisted category should be enabled by default")
	}
}

func TestLevelGate(t *testing.T) {
	t.Cleanup(reset)
	dir := t.TempDir()
	if err := Configure(Options{DebugMode: true, Level: "warn", Dir: dir}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	l := Get(CategoryOffload)
	l.Info("info suppressed")
	l.Warn("warn kept")
	CloseAll()

	files, _ := filepath.Glob(filepath.Join(dir, "*_offload.log"))
	if len(files) != 1 {
		t.Fatalf("expected offload log file, got %v", files)
	}
	data, _ := os.ReadFile(files[0])
	if strings.Contains(string(data), "info suppressed") {
		t.Error("info message should have been suppressed at warn level")
	}
	if !strings.Contains(string(data), "warn kept") {
		t.Error("warn message missing")
	}
}
