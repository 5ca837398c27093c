package sync

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListCheckpointFilesSortedAndFiltered(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	names := []string{
		"2000.json.lst",
		"1000.json.lst",
		"notes.txt",
		"500.json.lst",
		"abc.json.lst",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}

	files, err := listCheckpointFiles(dir)
	if err != nil {
		t.Fatalf("listCheckpointFiles: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3 (non-matching names filtered out): %+v", len(files), files)
	}
	want := []uint64{500, 1000, 2000}
	for i, w := range want {
		if files[i].num != w {
			t.Fatalf("files[%d].num=%d want %d", i, files[i].num, w)
		}
	}
}

func TestListCheckpointFilesMissingDir(t *testing.T) {
	t.Parallel()

	_, err := listCheckpointFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected an IsNotExist error, got %v", err)
	}
}

// blockIDFor builds a fake block_id hex string whose first 4 bytes
// encode num, matching RawBlock.BlockNum's decoding.
func blockIDFor(num uint64) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hex[num%16]
		num /= 16
	}
	return string(b) + "00000000000000000000000000000000000000000000000000000000"
}

func TestDecodeBlockNumRoundTrips(t *testing.T) {
	t.Parallel()

	raw := map[string]any{"block_id": blockIDFor(501)}
	got, err := decodeBlockNum(raw)
	if err != nil {
		t.Fatalf("decodeBlockNum: %v", err)
	}
	if got != 501 {
		t.Fatalf("decodeBlockNum=%d want 501", got)
	}
}

func TestDecodeBlockNumInvalidBlockID(t *testing.T) {
	t.Parallel()

	_, err := decodeBlockNum(map[string]any{"block_id": "short"})
	if err == nil {
		t.Fatalf("expected an error for a too-short block_id")
	}
}

func TestDeriveSkip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		head         uint64
		firstNum     uint64
		wantSkip     int
		wantGap      bool
	}{
		// a file named for block 1000 actually starts at block 501 (it
		// only holds blocks 501-1000); a fresh db (head=0) skips nothing,
		// but blocks 1-500 are a hole this file cannot backfill.
		{name: "fresh db", head: 0, firstNum: 501, wantSkip: 0, wantGap: true},
		// head already covers the first 120 of this file's blocks.
		{name: "partial overlap", head: 620, firstNum: 501, wantSkip: 120, wantGap: false},
		// scenario S4: stored head 500, file holds blocks 501-1000: no
		// skip, all 500 lines processed.
		{name: "exact boundary", head: 500, firstNum: 501, wantSkip: 0, wantGap: false},
		// head already covers the entire file.
		{name: "fully covered", head: 1000, firstNum: 501, wantSkip: 500, wantGap: false},
		// head has not yet reached this file's range: nothing to skip,
		// but the gap between head and firstNum cannot be backfilled here.
		{name: "gap ahead", head: 100, firstNum: 501, wantSkip: 0, wantGap: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			skip, gap := deriveSkip(tc.head, tc.firstNum)
			if skip != tc.wantSkip || gap != tc.wantGap {
				t.Fatalf("deriveSkip(%d, %d) = (%d, %v) want (%d, %v)",
					tc.head, tc.firstNum, skip, gap, tc.wantSkip, tc.wantGap)
			}
		})
	}
}
