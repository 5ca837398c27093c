package upstream

import (
	"context"
	"fmt"
	"time"
)

// ErrForkInDB is returned by StreamBlocks when a fetched block fails to
// link to the last emitted block AND the trail queue was empty — this
// is unrecoverable for live-tail (the original source's "Fork in db"
// exception) and callers must fall back to fast-sync from a lower
// height after truncating.
var ErrForkInDB = fmt.Errorf("upstream: fork in db, block does not link")

type streamCursor struct {
	num  uint64
	hash string
	date time.Time
}

// StreamBlocks streams blocks starting at startFrom, delayed by
// trailBlocks for reorg safety, matching SteemClient.stream_blocks. The
// returned channel is closed when the stream ends: either because the
// gap to head grew past maxGap, a fork was detected inside the trail
// queue (both non-fatal — caller re-enters fast-sync), or ctx was
// canceled. errCh carries at most one fatal error (ErrForkInDB, or any
// fetch, decode or argument error that ended the stream) and is always
// closed alongside blocks.
func (c *Client) StreamBlocks(ctx context.Context, startFrom uint64, trailBlocks, maxGap int) (<-chan RawBlock, <-chan error) {
	blocks := make(chan RawBlock)
	errs := make(chan error, 1)

	go func() {
		defer close(blocks)
		defer close(errs)
		if err := c.streamBlocksLoop(ctx, startFrom, trailBlocks, maxGap, blocks); err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}()

	return blocks, errs
}

func (c *Client) streamBlocksLoop(ctx context.Context, startFrom uint64, trailBlocks, maxGap int, out chan<- RawBlock) error {
	if trailBlocks < 0 || trailBlocks >= 25 {
		return fmt.Errorf("upstream: trail_blocks must be in [0,25)")
	}

	last, err := c.blockSimple(ctx, startFrom-1)
	if err != nil {
		return err
	}
	headNum, err := c.HeadBlock(ctx)
	if err != nil {
		return err
	}
	startHead := headNum
	nextExpected := time.Now()
	lagSecs := 0.0
	var queue []RawBlock

	for {
		if ctx.Err() != nil {
			return nil
		}
		if last.num > headNum {
			return fmt.Errorf("upstream: stream invariant violated: last.num %d > head %d", last.num, headNum)
		}

		timeNow := time.Now()
		for timeNow.After(nextExpected.Add(durationFromSecs(lagSecs))) || timeNow.Equal(nextExpected.Add(durationFromSecs(lagSecs))) {
			headNum++
			nextExpected = nextExpected.Add(3 * time.Second)
			gap := int(headNum - last.num)
			if gap > maxGap {
				return nil // gap too large; re-enter fast-sync
			}
			timeNow = time.Now()
		}

		if headNum == last.num {
			wait := nextExpected.Add(durationFromSecs(lagSecs)).Sub(timeNow)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
			headNum++
			nextExpected = nextExpected.Add(3 * time.Second)
		}

		blockNum := last.num + 1
		blk, present, err := c.GetBlock(ctx, blockNum)
		if err != nil {
			return err
		}
		if !present {
			lagSecs = minF(3, lagSecs+0.25)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		lagSecs = maxF(0, lagSecs-0.001)
		last.num = blockNum

		if last.hash != blk.Previous {
			if len(queue) > 0 {
				return nil // fork within the trail queue; re-enter fast-sync
			}
			return ErrForkInDB
		}
		last.hash = blk.BlockID

		blockDate, err := blk.ParsedTimestamp()
		if err != nil {
			return err
		}
		missSecs := blockDate.Sub(last.date).Seconds() - 3
		if missSecs > 0 && blockNum >= startHead {
			nextExpected = nextExpected.Add(durationFromSecs(missSecs))
		}
		last.date = blockDate

		queue = append(queue, blk)
		if len(queue) > trailBlocks {
			emit := queue[0]
			queue = queue[1:]
			select {
			case <-ctx.Done():
				return nil
			case out <- emit:
			}
		}
	}
}

func (c *Client) blockSimple(ctx context.Context, num uint64) (streamCursor, error) {
	blk, present, err := c.GetBlock(ctx, num)
	if err != nil {
		return streamCursor{}, err
	}
	if !present {
		return streamCursor{num: num}, nil
	}
	n, err := blk.BlockNum()
	if err != nil {
		return streamCursor{}, err
	}
	date, err := blk.ParsedTimestamp()
	if err != nil {
		return streamCursor{}, err
	}
	return streamCursor{num: n, hash: blk.BlockID, date: date}, nil
}

func durationFromSecs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
