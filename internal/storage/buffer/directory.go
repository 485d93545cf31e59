package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// pageKey is the pool-wide identity of a page
type pageKey struct {
	file   file.FileID
	pageID util.PageID
}

type dirEntry struct {
	key   pageKey
	frame int
	next  *dirEntry
}

// FrameDirectory maps a page identity to the frame holding it.
// It never holds more entries than the pool has frames, so the bucket
// array is sized once and chains stay short.
type FrameDirectory struct {
	buckets []*dirEntry
	count   int
}

func NewFrameDirectory(poolSize int) *FrameDirectory {
	return &FrameDirectory{
		buckets: make([]*dirEntry, int(float64(poolSize)*1.2)+1),
	}
}

func (fd *FrameDirectory) bucket(key pageKey) int {
	var buf [24]byte
	copy(buf[:16], key.file[:])
	binary.LittleEndian.PutUint64(buf[16:], uint64(key.pageID))
	return int(xxhash.Sum64(buf[:]) % uint64(len(fd.buckets)))
}

func (fd *FrameDirectory) Insert(key pageKey, frame int) error {
	b := fd.bucket(key)
	for e := fd.buckets[b]; e != nil; e = e.next {
		if e.key == key {
			return fmt.Errorf("page %d of file %s in frame %d: %w", key.pageID, key.file, e.frame, util.ErrDuplicateEntry)
		}
	}
	fd.buckets[b] = &dirEntry{key: key, frame: frame, next: fd.buckets[b]}
	fd.count++
	return nil
}

func (fd *FrameDirectory) Lookup(key pageKey) (int, error) {
	for e := fd.buckets[fd.bucket(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.frame, nil
		}
	}
	return -1, util.ErrNotFound
}

func (fd *FrameDirectory) Remove(key pageKey) error {
	b := fd.bucket(key)
	for link := &fd.buckets[b]; *link != nil; link = &(*link).next {
		if (*link).key == key {
			*link = (*link).next
			fd.count--
			return nil
		}
	}
	return util.ErrNotFound
}

func (fd *FrameDirectory) Len() int { return fd.count }
