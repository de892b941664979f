package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/manifest"
	"github.com/jamesainslie/treesum/pkg/treesum/reconcile"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

func TestComputeVerbosity(t *testing.T) {
	tests := []struct {
		name         string
		base         int
		up, down     int
		batch        bool
		modifiedOnly bool
		want         int
	}{
		{"default", 2, 0, 0, false, false, 2},
		{"verbose", 2, 1, 0, false, false, 3},
		{"double quiet", 2, 0, 2, false, false, 0},
		{"batch lowers by one", 2, 0, 0, true, false, 1},
		{"batch and quiet", 2, 0, 1, true, false, 0},
		{"modified caps at one", 2, 0, 0, false, true, 1},
		{"modified caps raised verbosity", 2, 2, 0, false, true, 1},
		{"modified leaves low verbosity", 2, 0, 2, false, true, 0},
		{"configured base", 3, 0, 0, false, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeVerbosity(tt.base, tt.up, tt.down, tt.batch, tt.modifiedOnly)
			if got != tt.want {
				t.Errorf("computeVerbosity(%d, %d, %d, %v, %v) = %d, want %d",
					tt.base, tt.up, tt.down, tt.batch, tt.modifiedOnly, got, tt.want)
			}
		})
	}
}

func TestSelectManifest(t *testing.T) {
	t.Run("empty directory starts a sha1 manifest", func(t *testing.T) {
		viper.Reset()
		root := t.TempDir()

		c, err := selectManifest(root)
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if !c.create {
			t.Error("expected a fresh manifest")
		}
		if c.algo != digest.SHA1 {
			t.Errorf("algo = %v, want sha1", c.algo)
		}
		if want := filepath.Join(root, "sha1sum.txt"); c.path != want {
			t.Errorf("path = %q, want %q", c.path, want)
		}
		if len(c.skip) != 1 || c.skip[0] != "sha1sum.txt" {
			t.Errorf("skip = %v, want [sha1sum.txt]", c.skip)
		}
	})

	t.Run("detects an existing manifest", func(t *testing.T) {
		viper.Reset()
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, "sha256sum.txt"), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		c, err := selectManifest(root)
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if c.create {
			t.Error("existing manifest must not be recreated")
		}
		if c.algo != digest.SHA256 {
			t.Errorf("algo = %v, want sha256", c.algo)
		}
	})

	t.Run("ambiguous manifests are fatal", func(t *testing.T) {
		viper.Reset()
		root := t.TempDir()
		for _, name := range []string{"md5sum.txt", "sha1sum.txt"} {
			if err := os.WriteFile(filepath.Join(root, name), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}

		_, err := selectManifest(root)
		if !errors.Is(err, manifest.ErrMultipleManifests) {
			t.Errorf("err = %v, want ErrMultipleManifests", err)
		}
	})

	t.Run("type picks the default name", func(t *testing.T) {
		viper.Reset()
		viper.Set("scan.type", "md5")
		root := t.TempDir()

		c, err := selectManifest(root)
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if c.algo != digest.MD5 {
			t.Errorf("algo = %v, want md5", c.algo)
		}
		if want := filepath.Join(root, "md5sum.txt"); c.path != want {
			t.Errorf("path = %q, want %q", c.path, want)
		}
	})

	t.Run("sha128 is a sha1 alias", func(t *testing.T) {
		viper.Reset()
		viper.Set("scan.type", "sha128")
		root := t.TempDir()

		c, err := selectManifest(root)
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if c.algo != digest.SHA1 {
			t.Errorf("algo = %v, want sha1", c.algo)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		viper.Reset()
		viper.Set("scan.type", "sha3")

		_, err := selectManifest(t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "unknown digest type") {
			t.Errorf("err = %v, want unknown digest type", err)
		}
	})

	t.Run("crc32 is not a content type", func(t *testing.T) {
		viper.Reset()
		viper.Set("scan.type", "crc32")

		_, err := selectManifest(t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "unknown digest type") {
			t.Errorf("err = %v, want unknown digest type", err)
		}
	})

	t.Run("explicit file wins over detection", func(t *testing.T) {
		viper.Reset()
		viper.Set("scan.file", "DIGESTS.txt")
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, "sha1sum.txt"), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		c, err := selectManifest(root)
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if want := filepath.Join(root, "DIGESTS.txt"); c.path != want {
			t.Errorf("path = %q, want %q", c.path, want)
		}
		if len(c.skip) != 1 || c.skip[0] != "DIGESTS.txt" {
			t.Errorf("skip = %v, want [DIGESTS.txt]", c.skip)
		}
	})

	t.Run("manifest outside the root is not skipped", func(t *testing.T) {
		viper.Reset()
		outside := filepath.Join(t.TempDir(), "elsewhere.sum")
		viper.Set("scan.file", outside)

		c, err := selectManifest(t.TempDir())
		if err != nil {
			t.Fatalf("selectManifest: %v", err)
		}
		if c.path != outside {
			t.Errorf("path = %q, want %q", c.path, outside)
		}
		if len(c.skip) != 0 {
			t.Errorf("skip = %v, want none", c.skip)
		}
	})
}

func TestLoadManifest(t *testing.T) {
	t.Run("create starts empty", func(t *testing.T) {
		m, err := loadManifest(manifestChoice{create: true, algo: digest.SHA1}, true)
		if err != nil {
			t.Fatalf("loadManifest: %v", err)
		}
		if m.Files.Len() != 0 || m.Algorithm != digest.SHA1 {
			t.Errorf("got %d entries, algorithm %v", m.Files.Len(), m.Algorithm)
		}
	})

	t.Run("missing file without type is fatal", func(t *testing.T) {
		c := manifestChoice{path: filepath.Join(t.TempDir(), "x.sum")}
		_, err := loadManifest(c, true)
		if err == nil || !strings.Contains(err.Error(), "--type") {
			t.Errorf("err = %v, want advice to set --type", err)
		}
	})

	t.Run("missing file with type downgrades to full scan", func(t *testing.T) {
		c := manifestChoice{path: filepath.Join(t.TempDir(), "x.sum"), algo: digest.SHA256}
		m, err := loadManifest(c, true)
		if err != nil {
			t.Fatalf("loadManifest: %v", err)
		}
		if m.Files.Len() != 0 || m.Algorithm != digest.SHA256 {
			t.Errorf("got %d entries, algorithm %v", m.Files.Len(), m.Algorithm)
		}
	})

	t.Run("existing manifest round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sha1sum.txt")
		files := index.NewFileIndex()
		insertRecord(t, files, "a.txt", 1000, 5, "00112233445566778899aabbccddeeff00112233")
		files.Find("a.txt").Status = types.StatusNew
		if _, err := manifest.WriteFile(path, files, manifest.WriteOptions{}); err != nil {
			t.Fatal(err)
		}

		m, err := loadManifest(manifestChoice{path: path}, true)
		if err != nil {
			t.Fatalf("loadManifest: %v", err)
		}
		if m.Files.Len() != 1 {
			t.Errorf("entries = %d, want 1", m.Files.Len())
		}
		if m.Algorithm != digest.SHA1 {
			t.Errorf("algorithm = %v, want sha1", m.Algorithm)
		}
	})

	t.Run("entryless manifest without type is fatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sha1sum.txt")
		if _, err := manifest.WriteFile(path, index.NewFileIndex(), manifest.WriteOptions{}); err != nil {
			t.Fatal(err)
		}

		_, err := loadManifest(manifestChoice{path: path}, true)
		if err == nil || !strings.Contains(err.Error(), "--type") {
			t.Errorf("err = %v, want advice to set --type", err)
		}
	})
}

func TestSelectFormatter(t *testing.T) {
	t.Run("empty falls back to the default", func(t *testing.T) {
		viper.Reset()
		f, err := selectFormatter("")
		if err != nil || f == nil {
			t.Errorf("f = %v, err = %v", f, err)
		}
	})

	t.Run("named format", func(t *testing.T) {
		viper.Reset()
		if _, err := selectFormatter("json"); err != nil {
			t.Errorf("selectFormatter(json): %v", err)
		}
	})

	t.Run("unknown format lists the choices", func(t *testing.T) {
		viper.Reset()
		_, err := selectFormatter("bogus")
		if err == nil || !strings.Contains(err.Error(), "available formats") {
			t.Errorf("err = %v, want available formats listing", err)
		}
	})

	t.Run("template needs a template string", func(t *testing.T) {
		viper.Reset()
		if _, err := selectFormatter("template"); err == nil {
			t.Error("expected an error without --template")
		}

		viper.Set("output.template", "{{.Root}}")
		if _, err := selectFormatter("template"); err != nil {
			t.Errorf("selectFormatter(template): %v", err)
		}
	})
}

func TestPrintProgress(t *testing.T) {
	tests := []struct {
		name         string
		res          reconcile.Result
		v            int
		modifiedOnly bool
		want         string
	}{
		{"tail only above one",
			reconcile.Result{Path: "a.txt", Status: types.StatusSeen}, 2, false,
			"untouched.\n"},
		{"full line at one",
			reconcile.Result{Path: "a.txt", Status: types.StatusSeen}, 1, false,
			"a.txt untouched.\n"},
		{"untouched hidden by modified",
			reconcile.Result{Path: "a.txt", Status: types.StatusSeen}, 1, true,
			""},
		{"touched prints matched",
			reconcile.Result{Path: "a.txt", Status: types.StatusTouched}, 2, false,
			"matched.\n"},
		{"matched hidden by modified",
			reconcile.Result{Path: "a.txt", Status: types.StatusTouched}, 1, true,
			""},
		{"changed survives modified",
			reconcile.Result{Path: "a.txt", Status: types.StatusChanged}, 1, true,
			"a.txt CHANGED.\n"},
		{"renamed shows the origin",
			reconcile.Result{Path: "b.txt", Status: types.StatusRenamed, OldPath: "a.txt"}, 1, false,
			"b.txt renamed.\n<-- a.txt\n"},
		{"copied tail shows the origin",
			reconcile.Result{Path: "b.txt", Status: types.StatusCopied, OldPath: "a.txt"}, 2, false,
			"copied.\n<-- a.txt\n"},
		{"error carries the cause",
			reconcile.Result{Path: "b.txt", Status: types.StatusError, Err: errors.New("boom")}, 1, false,
			"b.txt ERROR. boom\n"},
		{"error surfaces even when quiet",
			reconcile.Result{Path: "b.txt", Status: types.StatusError, Err: errors.New("boom")}, 0, false,
			"b.txt ERROR. boom\n"},
		{"new silent below one",
			reconcile.Result{Path: "a.txt", Status: types.StatusNew}, 0, false,
			""},
		{"skipped terminates the streamed path",
			reconcile.Result{Path: "a.txt", Status: types.StatusSkipped}, 3, false,
			"skipped.\n"},
		{"skipped silent at one",
			reconcile.Result{Path: "a.txt", Status: types.StatusSkipped}, 1, false,
			""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			printProgress(&buf, tt.res, tt.v, tt.modifiedOnly)
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListingFor(t *testing.T) {
	l := listingFor(reconcile.Result{
		Path:    "music/track.flac",
		Status:  types.StatusRenamed,
		OldPath: "music/old.flac",
	})
	if l.Path != "music/track.flac" || l.Status != "renamed" || l.OldPath != "music/old.flac" || l.Error != "" {
		t.Errorf("listing = %+v", l)
	}

	l = listingFor(reconcile.Result{
		Path:   "broken.dat",
		Status: types.StatusError,
		Err:    errors.New("permission denied"),
	})
	if l.Error != "permission denied" {
		t.Errorf("error = %q, want permission denied", l.Error)
	}
}
