package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/manifest"
	"github.com/jamesainslie/treesum/pkg/treesum/reconcile"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

// sha1 of "alpha", the content of the moved file in the fixture.
const alphaSHA1 = "be76331b95dfc399cd776d2fc68021e0db03cc4f"

func writeTestFile(t *testing.T, root, rel, content string) os.FileInfo {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", rel, err)
	}
	return info
}

func insertRecord(t *testing.T, files *index.FileIndex, path string, mtime, size int64, hexDigest string) {
	t.Helper()
	d, err := digest.ParseHex(hexDigest)
	if err != nil {
		t.Fatalf("parse digest for %s: %v", path, err)
	}
	rec := &types.FileRecord{Status: types.StatusUnseen, MTime: mtime, Size: size, Digest: d}
	if err := files.Insert(path, rec); err != nil {
		t.Fatalf("insert %s: %v", path, err)
	}
}

// testShell builds a session over a small tree with one file per
// interesting state: a.txt untouched, b.txt changed, c.txt new,
// moved.txt renamed from old-name.txt, gone.txt deleted.
func testShell(t *testing.T) (*shell, string) {
	t.Helper()
	root := t.TempDir()
	aInfo := writeTestFile(t, root, "a.txt", "alpha")
	bInfo := writeTestFile(t, root, "b.txt", "beta")
	cInfo := writeTestFile(t, root, "c.txt", "fresh")
	mInfo := writeTestFile(t, root, "moved.txt", "alpha")

	files := index.NewFileIndex()
	insertRecord(t, files, "a.txt", aInfo.ModTime().Unix(), aInfo.Size(),
		"00112233445566778899aabbccddeeff00112233")
	insertRecord(t, files, "b.txt", 1000, bInfo.Size(),
		"ffeeddccbbaa99887766554433221100ffeeddcc")
	insertRecord(t, files, "old-name.txt", 1000, mInfo.Size(), alphaSHA1)
	insertRecord(t, files, "gone.txt", 1000, 1,
		"0123456789abcdef0123456789abcdef01234567")

	m := &manifest.Manifest{Files: files, Algorithm: digest.SHA1}
	sess, err := reconcile.NewSession(m, reconcile.OSFilesystem{Root: root}, reconcile.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	classify := func(rel string, info os.FileInfo) {
		res := sess.Classify(reconcile.Entry{
			Path:  rel,
			MTime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		if res.Err != nil {
			t.Fatalf("classify %s: %v", rel, res.Err)
		}
	}
	classify("a.txt", aInfo)
	classify("b.txt", bInfo)
	classify("c.txt", cInfo)
	classify("moved.txt", mInfo)

	sh := newShell(sess, shellOptions{ManifestPath: filepath.Join(root, "sha1sum.txt")})
	return sh, root
}

func TestShellSummaryLayout(t *testing.T) {
	sh, _ := testShell(t)

	var buf bytes.Buffer
	sh.printSummary(&buf)
	got := buf.String()

	want := "File scan summary:\n" +
		"        New: 1\n" +
		"  Untouched: 1\n" +
		"    Changed: 1\n" +
		"    Renamed: 1\n" +
		"    Deleted: 1\n" +
		"      Total: 6\n"
	if got != want {
		t.Errorf("summary mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestShellListings(t *testing.T) {
	sh, _ := testShell(t)

	tests := []struct {
		name   string
		status types.Status
		want   string
	}{
		{"new", types.StatusNew, "c.txt new.\n"},
		{"untouched", types.StatusSeen, "a.txt untouched.\n"},
		{"changed", types.StatusChanged, "b.txt CHANGED.\n"},
		{"deleted", types.StatusUnseen, "gone.txt DELETED.\n"},
		{"renamed", types.StatusRenamed, "moved.txt renamed.\n<-- old-name.txt\n"},
		{"touched", types.StatusTouched, ""},
		{"error", types.StatusError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sh.listStatus(&buf, tt.status)
			if got := buf.String(); got != tt.want {
				t.Errorf("listing = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShellDispatch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantStay bool
		wantOut  string
	}{
		{"full command", "changed", true, "b.txt CHANGED.\n"},
		{"unique prefix", "ch", true, "b.txt CHANGED.\n"},
		{"modified alias", "mod", true, "b.txt CHANGED.\n"},
		{"single letter quit", "q", false, ""},
		{"exit", "exit", false, ""},
		{"ambiguous c", "c", true, "Ambiguous command. See \"help\".\n"},
		{"ambiguous e", "e", true, "Ambiguous command. See \"help\".\n"},
		{"empty is ambiguous", "", true, "Ambiguous command. See \"help\".\n"},
		{"unknown", "frobnicate", true, "Unknown command. See \"help\".\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, _ := testShell(t)
			var buf bytes.Buffer
			stay := sh.dispatch(&buf, tt.input)
			if stay != tt.wantStay {
				t.Errorf("dispatch(%q) stay = %v, want %v", tt.input, stay, tt.wantStay)
			}
			if got := buf.String(); got != tt.wantOut {
				t.Errorf("dispatch(%q) output = %q, want %q", tt.input, got, tt.wantOut)
			}
		})
	}
}

func TestShellHelpListsAllCommands(t *testing.T) {
	sh, _ := testShell(t)
	var buf bytes.Buffer
	sh.dispatch(&buf, "help")

	got := buf.String()
	for _, c := range shellCommands {
		if !strings.Contains(got, c.name) {
			t.Errorf("help output missing command %q", c.name)
		}
	}
}

func TestShellWriteExitsAndPersists(t *testing.T) {
	sh, _ := testShell(t)

	var buf bytes.Buffer
	stay := sh.dispatch(&buf, "w")
	if stay {
		t.Fatal("write should leave the prompt")
	}
	if want := "wrote 4 digests to " + sh.opts.ManifestPath + "\n"; buf.String() != want {
		t.Errorf("write output = %q, want %q", buf.String(), want)
	}

	m, err := manifest.Load(sh.opts.ManifestPath, manifest.LoadOptions{})
	if err != nil {
		t.Fatalf("load written manifest: %v", err)
	}
	if m.Files.Len() != 4 {
		t.Errorf("written manifest has %d entries, want 4", m.Files.Len())
	}
	if m.Files.Find("gone.txt") != nil {
		t.Error("deleted file survived the rewrite")
	}
	if m.Files.Find("old-name.txt") != nil {
		t.Error("rename origin survived the rewrite")
	}
	if m.Files.Find("moved.txt") == nil {
		t.Error("renamed file missing from the rewrite")
	}
}

func TestShellRunLoop(t *testing.T) {
	t.Run("quit ends the loop", func(t *testing.T) {
		sh, _ := testShell(t)
		var out bytes.Buffer
		if err := sh.run(strings.NewReader("untouched\nquit\n"), &out); err != nil {
			t.Fatalf("run: %v", err)
		}
		got := out.String()
		if n := strings.Count(got, "File scan summary:"); n != 2 {
			t.Errorf("summary printed %d times, want 2", n)
		}
		if n := strings.Count(got, "Command (see help)? "); n != 2 {
			t.Errorf("prompt printed %d times, want 2", n)
		}
		if !strings.Contains(got, "a.txt untouched.\n") {
			t.Error("listing missing from loop output")
		}
	})

	t.Run("eof ends the loop", func(t *testing.T) {
		sh, _ := testShell(t)
		var out bytes.Buffer
		if err := sh.run(strings.NewReader(""), &out); err != nil {
			t.Fatalf("run: %v", err)
		}
		if n := strings.Count(out.String(), "Command (see help)? "); n != 1 {
			t.Errorf("prompt printed %d times, want 1", n)
		}
	})

	t.Run("save ends the loop after writing", func(t *testing.T) {
		sh, _ := testShell(t)
		var out bytes.Buffer
		if err := sh.run(strings.NewReader("save\nuntouched\n"), &out); err != nil {
			t.Fatalf("run: %v", err)
		}
		if strings.Contains(out.String(), "a.txt untouched.") {
			t.Error("loop kept reading after save")
		}
		if _, err := os.Stat(sh.opts.ManifestPath); err != nil {
			t.Errorf("manifest not written: %v", err)
		}
	})
}
