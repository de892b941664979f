package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/treesum/pkg/treesum/logging"
)

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "size_rotate.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    512,
		MaxAge:     7,
		MaxBackups: 3,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	// Push well past MaxSize so at least one rotation happens.
	for i := 0; i < 20; i++ {
		msg := strings.Repeat("x", 50) + "\n"
		if _, writeErr := writer.Write([]byte(msg)); writeErr != nil {
			t.Fatalf("Write() error = %v", writeErr)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}

	logFiles := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "size_rotate") && strings.HasSuffix(e.Name(), ".log") {
			logFiles++
		}
	}

	if logFiles < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", logFiles)
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "backup_limit.log")

	maxBackups := 2
	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    256,
		MaxAge:     7,
		MaxBackups: maxBackups,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 50; i++ {
		msg := strings.Repeat("y", 30) + "\n"
		if _, writeErr := writer.Write([]byte(msg)); writeErr != nil {
			t.Fatalf("Write() error = %v", writeErr)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}

	logFiles := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "backup_limit") {
			logFiles++
		}
	}

	// Current file plus MaxBackups rotated siblings at most.
	if logFiles > maxBackups+1 {
		t.Errorf("expected at most %d log files, got %d", maxBackups+1, logFiles)
	}
}

func TestRotationZeroMaxSizeUsesDefault(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "defaults.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	if _, err := writer.Write([]byte("one small record\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file missing: %v", err)
	}

	// A small write under the default limit must not rotate.
	entries, err := os.ReadDir(filepath.Dir(logPath))
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single log file, found %d entries", len(entries))
	}
}

func TestRotationCreatesDirectories(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "state", "treesum", "treesum.log")

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 1024})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if _, err := writer.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file missing under created directories: %v", err)
	}
}

func TestRotationPrunesOldFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "prune.log")

	// Seed rotated siblings that look long abandoned.
	stale := filepath.Join(tempDir, "prune.2020-01-01-000000.log")
	if err := os.WriteFile(stale, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("failed to seed rotated file: %v", err)
	}
	past := time.Now().AddDate(0, 0, -60)
	if err := os.Chtimes(stale, past, past); err != nil {
		t.Fatalf("failed to age rotated file: %v", err)
	}

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize: 1024,
		MaxAge:  30,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale rotated file survived startup pruning: %v", err)
	}
}

func TestRotationPruneIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "keep.log")

	// A neighbor that merely shares the directory must never be pruned.
	neighbor := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(neighbor, []byte("keep me\n"), 0o644); err != nil {
		t.Fatalf("failed to create neighbor file: %v", err)
	}
	past := time.Now().AddDate(0, 0, -400)
	if err := os.Chtimes(neighbor, past, past); err != nil {
		t.Fatalf("failed to age neighbor file: %v", err)
	}

	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{
		MaxSize:    1024,
		MaxAge:     30,
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(neighbor); err != nil {
		t.Errorf("unrelated file was pruned: %v", err)
	}
}

func TestRotationConcurrentWrites(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "concurrent.log")

	// A limit large enough that no rotation interferes with counting.
	writer, err := logging.NewRotatingWriter(logPath, logging.RotationConfig{MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	const goroutines = 10
	const writesEach = 20

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writesEach; i++ {
				if _, err := writer.Write([]byte("concurrent record\n")); err != nil {
					t.Errorf("Write() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("os.ReadFile(%q) error = %v", logPath, err)
	}
	lines := strings.Count(string(data), "\n")
	if lines != goroutines*writesEach {
		t.Errorf("expected %d records, got %d", goroutines*writesEach, lines)
	}
}
