package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

var checkpointFileRE = regexp.MustCompile(`^(\d+)\.json\.lst$`)

type checkpointFile struct {
	num  uint64
	path string
}

// listCheckpointFiles scans dir for <block_num>.json.lst replay files,
// sorted ascending by the number in their name, matching spec.md §6's
// "Checkpoint files" section.
func listCheckpointFiles(dir string) ([]checkpointFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []checkpointFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := checkpointFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		files = append(files, checkpointFile{num: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })
	return files, nil
}

// replayCheckpoints implements spec.md §4.G step 2.a: replay each
// checkpoint file in order, skipping any lines already covered by the
// stored head, applying the remainder in chunks of fastSyncRangeSize.
//
// A file's nominal range is derived from its own first line's block
// number rather than chained from the previous file's name — this
// resolves ambiguously-specified skip counts (scenario S4: a file named
// for block 1000 that in fact only contains blocks 501-1000) without
// assuming every lower-numbered checkpoint file is present on disk.
func (o *Orchestrator) replayCheckpoints(ctx context.Context) error {
	files, err := listCheckpointFiles(o.CheckpointDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sync: list checkpoint files: %w", err)
	}

	for _, f := range files {
		if err := o.replayCheckpointFile(ctx, f); err != nil {
			return fmt.Errorf("sync: replay %s: %w", f.path, err)
		}
	}
	return nil
}

func (o *Orchestrator) replayCheckpointFile(ctx context.Context, f checkpointFile) error {
	head, err := o.Store.HeadNum(ctx)
	if err != nil {
		return err
	}
	if f.num <= head {
		return nil // fully covered by a prior run
	}

	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	firstNum, skip, gapDetected := uint64(0), 0, false
	lineIdx := 0
	var chunk []map[string]any

	flushChunk := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := o.applyRawChunk(ctx, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			return fmt.Errorf("decode line %d: %w", lineIdx, err)
		}

		if lineIdx == 0 {
			blk, derr := decodeBlockNum(raw)
			if derr != nil {
				return derr
			}
			firstNum = blk
			skip, gapDetected = deriveSkip(head, firstNum)
		}

		if lineIdx < skip {
			lineIdx++
			continue
		}
		lineIdx++

		chunk = append(chunk, raw)
		if len(chunk) >= fastSyncRangeSize {
			if err := flushChunk(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := flushChunk(); err != nil {
		return err
	}

	if gapDetected {
		log.Printf("[sync] checkpoint file %s starts at block %d, ahead of stored head %d: gap not backfilled", f.path, firstNum, head)
	}
	return nil
}

// deriveSkip resolves scenario S4: a checkpoint file may be named for a
// round block number (e.g. 1000.json.lst) while its first line actually
// holds an earlier block (e.g. 501). firstNum is that actual first
// block's number; head is the stored head going into this file. skip is
// how many leading lines are already covered by head and must be
// discarded; gapDetected reports a hole between head and the file's
// first block that this file cannot backfill.
func deriveSkip(head, firstNum uint64) (skip int, gapDetected bool) {
	if firstNum == 0 {
		return 0, false
	}
	if head >= firstNum-1 {
		return int(head - (firstNum - 1)), false
	}
	if head+1 < firstNum {
		return 0, true
	}
	return 0, false
}

func decodeBlockNum(raw map[string]any) (uint64, error) {
	blk, err := upstream.DecodeRawBlock(raw)
	if err != nil {
		return 0, err
	}
	return blk.BlockNum()
}

// applyRawChunk decodes and applies one checkpoint chunk within a single
// transaction, matching spec.md §5's "initial-sync batches wrap N blocks
// (≤1000) in one transaction".
func (o *Orchestrator) applyRawChunk(ctx context.Context, chunk []map[string]any) error {
	tx, err := o.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lastNum uint64
	for _, raw := range chunk {
		blk, err := upstream.DecodeRawBlock(raw)
		if err != nil {
			return err
		}
		if _, err := o.Processor.Apply(ctx, tx, blk, true); err != nil {
			return err
		}
		lastNum, err = blk.BlockNum()
		if err != nil {
			return err
		}
	}
	if _, err := o.Accounts.Flush(ctx, tx, lastNum, 0); err != nil {
		return err
	}
	if err := o.Follow.Flush(ctx, tx); err != nil {
		return err
	}
	if err := store.SetCheckpoint(ctx, tx, o.ServiceName, lastNum); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
