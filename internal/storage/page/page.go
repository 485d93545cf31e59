package page

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

const (
	HEADER_SIZE = 16 // Size of PageHeader struct: PageID(8) + Checksum(4) + Flags(2) + padding(2)
	DATA_SIZE   = util.PageSize - HEADER_SIZE
)

const (
	// FlagFree marks a page that sits on its file's free list
	FlagFree uint16 = 1 << 0
)

// Page is block that read/write from disk
type Page struct {
	Header PageHeader
	Data   [DATA_SIZE]byte
}

type PageHeader struct {
	PageID   util.PageID // 8 bytes
	Checksum uint32      // 4 bytes
	Flags    uint16      // 2 bytes
	_        uint16      //2 bytes (padding)
}

func (h *PageHeader) IsFree() bool { return h.Flags&FlagFree != 0 }

func (h *PageHeader) SetFreeFlag() { h.Flags |= FlagFree }

func (h *PageHeader) ClearFreeFlag() { h.Flags &^= FlagFree }

// Reset zeroes the page so a frame can be reused
func (p *Page) Reset() {
	*p = Page{}
}

// Checksum hashes the data area; the header is not covered
func (p *Page) Checksum() uint32 {
	return uint32(xxhash.Sum64(p.Data[:]))
}

// Serialize packs the page into a byte slice for writing
func (p *Page) Serialize() []byte {
	buf := make([]byte, util.PageSize)
	p.SerializeTo(buf)
	return buf
}

// SerializeTo packs the page into buf, which must hold PageSize bytes.
// The stored checksum is recomputed.
func (p *Page) SerializeTo(buf []byte) {
	p.Header.Checksum = p.Checksum()
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.PageID))
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)
	binary.LittleEndian.PutUint16(buf[12:14], p.Header.Flags)
	binary.LittleEndian.PutUint16(buf[14:16], 0)

	copy(buf[HEADER_SIZE:util.PageSize], p.Data[:])
}

// Deserialize unpacks from bytes, validates checksum
func Deserialize(data []byte) (*Page, error) {
	p := &Page{}
	if err := DeserializeInto(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeserializeInto unpacks data into an existing page, avoiding an allocation
func DeserializeInto(data []byte, p *Page) error {
	if len(data) != util.PageSize {
		return fmt.Errorf("deserialize %d bytes: %w", len(data), util.ErrInvalidPageSize)
	}

	p.Header.PageID = util.PageID(binary.LittleEndian.Uint64(data[0:8]))
	p.Header.Checksum = binary.LittleEndian.Uint32(data[8:12])
	p.Header.Flags = binary.LittleEndian.Uint16(data[12:14])
	copy(p.Data[:], data[HEADER_SIZE:])

	if sum := p.Checksum(); sum != p.Header.Checksum {
		return fmt.Errorf("page %d: stored %#x, computed %#x: %w",
			p.Header.PageID, p.Header.Checksum, sum, util.ErrChecksumMismatch)
	}
	return nil
}
