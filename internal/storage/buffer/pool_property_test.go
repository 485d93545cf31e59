package buffer

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// TestRandomFetchUnpin drives the pool with random fetch/unpin calls and
// checks pin accounting, frame/directory agreement and content round trips.
func TestRandomFetchUnpin(t *testing.T) {
	const (
		poolSize = 4
		numPages = 10
		steps    = 5000
	)

	rng := rand.New(rand.NewSource(42))
	mf := file.NewMemFile()
	bp := newTestPool(t, poolSize)

	content := map[util.PageID]string{}
	var ids []util.PageID
	for i := 0; i < numPages; i++ {
		label := fmt.Sprintf("page-%d-v0", i)
		pid := mf.Seed([]byte(label))
		ids = append(ids, pid)
		content[pid] = label
	}

	pins := map[util.PageID]int32{}

	for step := 0; step < steps; step++ {
		pid := ids[rng.Intn(numPages)]

		if rng.Intn(2) == 0 {
			h, err := bp.FetchPage(mf, pid)
			if errors.Is(err, util.ErrPoolExhausted) {
				pinned := 0
				for _, n := range pins {
					if n > 0 {
						pinned++
					}
				}
				require.Equal(t, poolSize, pinned, "step %d: exhausted with unpinned frames", step)
				require.Zero(t, pins[pid], "step %d: a pinned page always hits", step)
				continue
			}
			require.NoError(t, err, "step %d", step)
			pins[pid]++
			require.True(t, bytes.HasPrefix(h.Data(), []byte(content[pid])), "step %d: page %d content", step, pid)
		} else {
			dirty := rng.Intn(3) == 0
			if pins[pid] > 0 && dirty {
				h, err := bp.FetchPage(mf, pid)
				require.NoError(t, err)
				label := fmt.Sprintf("page-%d-v%d", pid, step)
				copy(h.Data(), label)
				content[pid] = label
				require.NoError(t, bp.UnpinPage(mf, pid, false))
			}

			err := bp.UnpinPage(mf, pid, dirty)
			switch {
			case pins[pid] > 0:
				require.NoError(t, err, "step %d", step)
				pins[pid]--
			case isCached(bp, mf, pid):
				require.ErrorIs(t, err, util.ErrNotPinned, "step %d", step)
			default:
				require.ErrorIs(t, err, util.ErrNotFound, "step %d", step)
			}
		}

		for _, p := range ids {
			if pins[p] > 0 {
				require.True(t, isCached(bp, mf, p), "step %d: pinned page %d evicted", step, p)
				require.Equal(t, pins[p], descOf(t, bp, mf, p).PinCount(), "step %d: page %d", step, p)
			}
		}
		if step%100 == 0 {
			checkInvariants(t, bp)
		}
	}
	checkInvariants(t, bp)
}
