package file

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

func TestNewFileManager(t *testing.T) {
	tests := []struct {
		name          string
		initialPages  int
		expectedError error
		shouldSucceed bool
	}{
		{
			name:          "Valid creation with 1 page",
			initialPages:  1,
			expectedError: nil,
			shouldSucceed: true,
		},
		{
			name:          "Valid creation with 10 pages",
			initialPages:  10,
			expectedError: nil,
			shouldSucceed: true,
		},
		{
			name:          "Invalid negative pages",
			initialPages:  -1,
			expectedError: util.ErrInvalidInitialPages,
			shouldSucceed: false,
		},
		{
			name:          "Zero pages (edge case)",
			initialPages:  0,
			expectedError: util.ErrInvalidInitialPages,
			shouldSucceed: false,
		},
		{
			name:          "Large but valid page count",
			initialPages:  1000,
			expectedError: nil,
			shouldSucceed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempFile, cleanup := util.CreateTempFile(t)
			defer cleanup()

			fm, err := NewFileManager(tempFile, tt.initialPages)

			if tt.shouldSucceed {
				require.NoError(t, err)
				require.NotNil(t, fm)
				defer fm.Close()

				expectedSize := int64(tt.initialPages) * int64(util.PageSize)
				assert.Equal(t, expectedSize, fm.Size, "mapped size")
				assert.Equal(t, util.PageID(1), fm.NumPages(), "only the meta page")

				_, err := os.Stat(tempFile)
				assert.NoError(t, err, "file should exist")
			} else {
				if fm != nil {
					fm.Close()
				}
				assert.ErrorIs(t, err, tt.expectedError)
			}
		})
	}
}

func TestAllocateWriteRead(t *testing.T) {
	path, cleanup := util.CreateTempFile(t)
	defer cleanup()
	fm, err := NewFileManager(path, 1)
	require.NoError(t, err)

	var ids []util.PageID
	for i := 0; i < 5; i++ {
		pid, err := fm.AllocatePage()
		require.NoError(t, err, "allocate %d", i)
		ids = append(ids, pid)
	}
	assert.Equal(t, []util.PageID{1, 2, 3, 4, 5}, ids, "ids are handed out in order")
	assert.GreaterOrEqual(t, fm.Size, int64(6*util.PageSize), "mapping grew")

	t.Run("FreshPageIsZero", func(t *testing.T) {
		var p page.Page
		require.NoError(t, fm.ReadPage(3, &p))
		assert.Equal(t, util.PageID(3), p.Header.PageID)
		assert.Equal(t, [page.DATA_SIZE]byte{}, p.Data)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		src := page.CreateTestPage(0, []byte("page two payload"))
		require.NoError(t, fm.WritePage(2, src))
		assert.Equal(t, util.PageID(2), src.Header.PageID, "writer stamps the id")

		var dst page.Page
		require.NoError(t, fm.ReadPage(2, &dst))
		assert.Equal(t, src.Data, dst.Data)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		var p page.Page
		assert.ErrorIs(t, fm.ReadPage(0, &p), util.ErrPageOutOfBounds, "meta page is not readable")
		assert.ErrorIs(t, fm.ReadPage(99, &p), util.ErrPageOutOfBounds)
		assert.ErrorIs(t, fm.WritePage(99, &p), util.ErrPageOutOfBounds)
		assert.ErrorIs(t, fm.DisposePage(0), util.ErrPageOutOfBounds)
	})

	t.Run("Reopen", func(t *testing.T) {
		id := fm.ID()
		require.NoError(t, fm.Close())
		assert.NoError(t, fm.Close(), "close is idempotent")

		var p page.Page
		assert.ErrorIs(t, fm.ReadPage(2, &p), util.ErrFileClosed)

		reopened, err := NewFileManager(path, 1)
		require.NoError(t, err)
		defer reopened.Close()

		assert.Equal(t, id, reopened.ID(), "identity persists")
		assert.Equal(t, util.PageID(6), reopened.NumPages())
		require.NoError(t, reopened.ReadPage(2, &p))
		assert.True(t, bytes.HasPrefix(p.Data[:], []byte("page two payload")))
	})
}

func TestDisposeReusesPage(t *testing.T) {
	path, cleanup := util.CreateTempFile(t)
	defer cleanup()
	fm, err := NewFileManager(path, 4)
	require.NoError(t, err)
	defer fm.Close()

	for i := 0; i < 3; i++ {
		_, err := fm.AllocatePage()
		require.NoError(t, err)
	}
	require.NoError(t, fm.WritePage(2, page.CreateTestPage(2, []byte("old"))))

	require.NoError(t, fm.DisposePage(2))
	require.NoError(t, fm.DisposePage(1))

	var p page.Page
	assert.ErrorIs(t, fm.ReadPage(2, &p), util.ErrPageNotAllocated)
	assert.ErrorIs(t, fm.WritePage(2, &p), util.ErrPageNotAllocated)
	assert.ErrorIs(t, fm.DisposePage(2), util.ErrPageNotAllocated, "double dispose")

	// free list is LIFO
	pid, err := fm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, util.PageID(1), pid)
	pid, err = fm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, util.PageID(2), pid)

	require.NoError(t, fm.ReadPage(2, &p))
	assert.Equal(t, [page.DATA_SIZE]byte{}, p.Data, "reused page is zeroed")

	pid, err = fm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, util.PageID(4), pid, "file extends once the free list is empty")
}

func TestOpenCorruptFile(t *testing.T) {
	path, cleanup := util.CreateTempFile(t)
	defer cleanup()

	t.Run("BadMeta", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xab}, util.PageSize), 0o666))
		_, err := NewFileManager(path, 1)
		assert.ErrorIs(t, err, util.ErrBadFileHeader)
	})

	t.Run("PartialPage", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o666))
		_, err := NewFileManager(path, 1)
		assert.ErrorIs(t, err, util.ErrBadFileHeader)
	})
}

func TestMemFile(t *testing.T) {
	mf := NewMemFile()
	pid := mf.Seed([]byte("seeded"))

	var p page.Page
	require.NoError(t, mf.ReadPage(pid, &p))
	assert.True(t, bytes.HasPrefix(p.Data[:], []byte("seeded")))
	assert.Equal(t, 1, mf.Reads)

	copy(p.Data[:], "changed")
	require.NoError(t, mf.WritePage(pid, &p))
	require.Len(t, mf.Writes, 1)
	assert.Equal(t, pid, mf.Writes[0].PageID)

	stored, ok := mf.Stored(pid)
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(stored.Data[:], []byte("changed")))

	mf.WriteErr = os.ErrPermission
	assert.ErrorIs(t, mf.WritePage(pid, &p), os.ErrPermission)
	assert.Len(t, mf.Writes, 1, "failed writes are not journaled")

	require.NoError(t, mf.DisposePage(pid))
	assert.ErrorIs(t, mf.ReadPage(pid, &p), util.ErrPageNotAllocated)
}
