package page

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

func TestPageLayout(t *testing.T) {
	assert.Equal(t, uintptr(HEADER_SIZE), unsafe.Sizeof(PageHeader{}), "header size")
	assert.Equal(t, uintptr(util.PageSize), unsafe.Sizeof(Page{}), "page size")
}

func TestSerializeRoundTrip(t *testing.T) {
	p := CreateTestPage(42, []byte("hello frames"))
	p.Header.SetFreeFlag()

	buf := p.Serialize()
	require.Len(t, buf, util.PageSize)
	assert.Equal(t, "hello frames", string(buf[HEADER_SIZE:HEADER_SIZE+12]))

	got, err := Deserialize(buf)
	require.NoError(t, err)
	assert.Equal(t, util.PageID(42), got.Header.PageID)
	assert.True(t, got.Header.IsFree(), "flags survive")
	assert.Equal(t, p.Data, got.Data)
	assert.Equal(t, p.Checksum(), got.Header.Checksum)
}

func TestDeserializeErrors(t *testing.T) {
	t.Run("ShortBuffer", func(t *testing.T) {
		_, err := Deserialize(make([]byte, 10))
		assert.ErrorIs(t, err, util.ErrInvalidPageSize)
	})

	t.Run("CorruptData", func(t *testing.T) {
		buf := CreateTestPage(7, []byte("payload")).Serialize()
		buf[HEADER_SIZE+3] ^= 0xff

		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch)
	})

	t.Run("EmptyPage", func(t *testing.T) {
		var empty Page
		buf := empty.Serialize()
		got, err := Deserialize(buf)
		require.NoError(t, err)
		assert.Equal(t, util.PageID(0), got.Header.PageID)
	})
}

func TestFreeFlag(t *testing.T) {
	var h PageHeader
	assert.False(t, h.IsFree())
	h.SetFreeFlag()
	assert.True(t, h.IsFree())
	h.ClearFreeFlag()
	assert.False(t, h.IsFree())
}

func TestReset(t *testing.T) {
	p := CreateTestPage(3, []byte("x"))
	p.Reset()
	assert.Equal(t, Page{}, *p)
}
