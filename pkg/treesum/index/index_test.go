package index

import (
	"errors"
	"testing"

	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

func TestFileIndexOrderedWalk(t *testing.T) {
	ix := NewFileIndex()

	paths := []string{"zoo/b.txt", "a.txt", "sub/c.txt", "b.txt", "sub/a.txt"}
	for _, p := range paths {
		if err := ix.Insert(p, &types.FileRecord{}); err != nil {
			t.Fatalf("Insert(%q) error = %v", p, err)
		}
	}

	if ix.Len() != len(paths) {
		t.Errorf("Len() = %d, want %d", ix.Len(), len(paths))
	}

	want := []string{"a.txt", "b.txt", "sub/a.txt", "sub/c.txt", "zoo/b.txt"}
	var got []string
	ix.Walk(func(path string, _ *types.FileRecord) bool {
		got = append(got, path)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("walk visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk visited %v, want %v", got, want)
		}
	}
}

func TestFileIndexDuplicateInsert(t *testing.T) {
	ix := NewFileIndex()

	first := &types.FileRecord{Size: 1}
	if err := ix.Insert("a.txt", first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	err := ix.Insert("a.txt", &types.FileRecord{Size: 2})
	if !errors.Is(err, ErrDuplicatePath) {
		t.Fatalf("second Insert() error = %v, want ErrDuplicatePath", err)
	}

	// The original record must be untouched.
	if got := ix.Find("a.txt"); got != first {
		t.Error("duplicate insert should not replace the original record")
	}
	if ix.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ix.Len())
	}
}

func TestFileIndexFindMissing(t *testing.T) {
	ix := NewFileIndex()
	if ix.Find("nope") != nil {
		t.Error("Find() of absent path should return nil")
	}
}

func TestFileIndexSharedRecords(t *testing.T) {
	ix := NewFileIndex()
	rec := &types.FileRecord{Status: types.StatusUnseen}
	if err := ix.Insert("a.txt", rec); err != nil {
		t.Fatal(err)
	}

	rec.Status = types.StatusSeen
	if got := ix.Find("a.txt").Status; got != types.StatusSeen {
		t.Errorf("Status through index = %v, want seen", got)
	}
}

func TestFileIndexWalkFrom(t *testing.T) {
	ix := NewFileIndex()
	for _, p := range []string{"a/x", "b/x", "b/y", "c/x"} {
		if err := ix.Insert(p, &types.FileRecord{}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	ix.WalkFrom("b/", func(path string, _ *types.FileRecord) bool {
		got = append(got, path)
		return true
	})

	want := []string{"b/x", "b/y", "c/x"}
	if len(got) != len(want) {
		t.Fatalf("WalkFrom visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WalkFrom visited %v, want %v", got, want)
		}
	}
}

func TestDigestIndexRunOrder(t *testing.T) {
	ix := NewDigestIndex()

	shared, err := digest.ParseHex("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatal(err)
	}
	other, err := digest.ParseHex("ffeeddccbbaa99887766554433221100")
	if err != nil {
		t.Fatal(err)
	}

	ix.Add(shared, "first.txt")
	ix.Add(other, "unrelated.txt")
	ix.Add(shared, "second.txt")
	ix.Add(shared, "third.txt")

	if ix.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ix.Len())
	}

	var got []string
	for c := ix.First(shared); c.Valid(); c = c.Next() {
		got = append(got, c.Path())
	}

	want := []string{"first.txt", "second.txt", "third.txt"}
	if len(got) != len(want) {
		t.Fatalf("run = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("run = %v, want %v", got, want)
		}
	}
}

func TestDigestIndexUnknownDigest(t *testing.T) {
	ix := NewDigestIndex()

	dg, err := digest.ParseHex("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatal(err)
	}
	if ix.First(dg).Valid() {
		t.Error("cursor for unknown digest should be invalid")
	}

	ix.Add(dg, "a.txt")
	unknown, err := digest.ParseHex("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if ix.First(unknown).Valid() {
		t.Error("cursor for unindexed digest should be invalid")
	}
}
