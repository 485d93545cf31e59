package buffer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

func TestBufferPoolOverFileManager(t *testing.T) {
	path, cleanup := util.CreateTempFile(t)
	defer cleanup()
	fm, err := file.NewFileManager(path, 2)
	require.NoError(t, err, "create FileManager")

	bp := newTestPool(t, 3)

	var ids []util.PageID
	for i := 0; i < 10; i++ {
		pid, h, err := bp.AllocatePage(fm)
		require.NoError(t, err, "allocate page %d", i)
		copy(h.Data(), fmt.Sprintf("Page %d test data", i))
		require.NoError(t, bp.UnpinPage(fm, pid, true))
		ids = append(ids, pid)
	}
	assert.Equal(t, 3, bp.Stats().ValidFrames)

	t.Run("EvictedPagesReadBack", func(t *testing.T) {
		for i, pid := range ids {
			h, err := bp.FetchPage(fm, pid)
			require.NoError(t, err, "fetch page %d", pid)
			assert.True(t, bytes.HasPrefix(h.Data(), []byte(fmt.Sprintf("Page %d test data", i))), "page %d", pid)
			require.NoError(t, bp.UnpinPage(fm, pid, false))
		}
		checkInvariants(t, bp)
	})

	t.Run("DisposeThenReuse", func(t *testing.T) {
		require.NoError(t, bp.DisposePage(fm, ids[4]))
		_, err := bp.FetchPage(fm, ids[4])
		assert.ErrorIs(t, err, util.ErrIO)
		assert.ErrorIs(t, err, util.ErrPageNotAllocated)

		pid, h, err := bp.AllocatePage(fm)
		require.NoError(t, err)
		assert.Equal(t, ids[4], pid, "file reuses the disposed page")
		assert.Equal(t, make([]byte, page.DATA_SIZE), h.Data())
		copy(h.Data(), "Page 4 reborn")
		require.NoError(t, bp.UnpinPage(fm, pid, true))
		checkInvariants(t, bp)
	})

	t.Run("FlushFileAndReopen", func(t *testing.T) {
		require.NoError(t, bp.FlushFile(fm))
		assert.Equal(t, 0, bp.Stats().ValidFrames)
		require.NoError(t, bp.Close())
		require.NoError(t, fm.Close())

		reopened, err := file.NewFileManager(path, 2)
		require.NoError(t, err)
		defer reopened.Close()

		var p page.Page
		require.NoError(t, reopened.ReadPage(ids[4], &p))
		assert.True(t, bytes.HasPrefix(p.Data[:], []byte("Page 4 reborn")))
		require.NoError(t, reopened.ReadPage(ids[9], &p))
		assert.True(t, bytes.HasPrefix(p.Data[:], []byte("Page 9 test data")))
	})
}
