package file

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

/**
* This module is used to read and write pages from / to disk.
* The file is mapped into memory; page 0 is the meta page:
*   [0:4]   magic
*   [4:20]  file id (uuid)
*   [20:28] number of pages, meta page included
*   [28:36] head of the free list, 0 when empty
* A disposed page carries page.FlagFree and stores the next free page id
* in its first 8 data bytes.
**/
type FileManager struct {
	File      *os.File
	Data      []byte
	Size      int64
	mapHandle uintptr

	id       FileID
	numPages util.PageID
	freeHead util.PageID
	scratch  page.Page
}

const (
	metaPageID = util.PageID(0)
	metaMagic  = "BFM1"
)

var _ Filer = (*FileManager)(nil)

func NewFileManager(path string, initialPages int) (*FileManager, error) {
	if initialPages <= 0 {
		return nil, util.ErrInvalidInitialPages
	}

	initialSize := int64(initialPages) * int64(util.PageSize)
	if initialSize > util.MAX_MAP_SIZE {
		return nil, util.ErrMaxMapSizeExceeded
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	fm := &FileManager{File: f}

	if info.Size() == 0 {
		if err := mmap(fm, initialSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("map file fail: %w", err)
		}
		fm.id = uuid.New()
		fm.numPages = 1
		fm.freeHead = 0
		fm.writeMeta()
		return fm, nil
	}

	if info.Size()%util.PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("file size %d: %w", info.Size(), util.ErrBadFileHeader)
	}
	if err := mmap(fm, info.Size()); err != nil {
		f.Close()
		return nil, fmt.Errorf("map file fail: %w", err)
	}
	if err := fm.readMeta(); err != nil {
		fm.Close()
		return nil, err
	}

	return fm, nil
}

func (fm *FileManager) ID() FileID { return fm.id }

// NumPages returns the number of pages ever handed out, meta page included
func (fm *FileManager) NumPages() util.PageID { return fm.numPages }

/* READ FILE */
func (fm *FileManager) ReadPage(pageId util.PageID, dst *page.Page) error {
	if err := fm.checkPage(pageId); err != nil {
		return err
	}

	if err := page.DeserializeInto(fm.pageBytes(pageId), dst); err != nil {
		return fmt.Errorf("deserialize page %d: %w", pageId, err)
	}
	if dst.Header.IsFree() {
		return fmt.Errorf("read page %d: %w", pageId, util.ErrPageNotAllocated)
	}

	return nil
}

/* WRITE FILE */
func (fm *FileManager) WritePage(pageId util.PageID, p *page.Page) error {
	if err := fm.checkPage(pageId); err != nil {
		return err
	}
	if fm.isFree(pageId) {
		return fmt.Errorf("write page %d: %w", pageId, util.ErrPageNotAllocated)
	}

	p.Header.PageID = pageId
	p.Header.ClearFreeFlag()
	p.SerializeTo(fm.pageBytes(pageId))
	return nil
}

// AllocatePage pops the free list, or extends the file when the list is empty.
// The returned page is zeroed on disk.
func (fm *FileManager) AllocatePage() (util.PageID, error) {
	if fm.File == nil {
		return util.InvalidPageID, util.ErrFileClosed
	}

	var pageId util.PageID
	if fm.freeHead != 0 {
		pageId = fm.freeHead
		if err := page.DeserializeInto(fm.pageBytes(pageId), &fm.scratch); err != nil {
			return util.InvalidPageID, fmt.Errorf("[AllocatePage] free page %d: %w", pageId, err)
		}
		if !fm.scratch.Header.IsFree() {
			return util.InvalidPageID, fmt.Errorf("[AllocatePage] free list head %d: %w", pageId, util.ErrBadFileHeader)
		}
		fm.freeHead = util.PageID(binary.LittleEndian.Uint64(fm.scratch.Data[0:8]))
	} else {
		pageId = fm.numPages
		if err := fm.ensureCapacity(pageId); err != nil {
			return util.InvalidPageID, err
		}
		fm.numPages++
	}

	fm.scratch.Reset()
	fm.scratch.Header.PageID = pageId
	fm.scratch.SerializeTo(fm.pageBytes(pageId))
	fm.writeMeta()

	return pageId, nil
}

// DisposePage pushes the page onto the free list.
func (fm *FileManager) DisposePage(pageId util.PageID) error {
	if err := fm.checkPage(pageId); err != nil {
		return err
	}
	if fm.isFree(pageId) {
		return fmt.Errorf("dispose page %d: %w", pageId, util.ErrPageNotAllocated)
	}

	fm.scratch.Reset()
	fm.scratch.Header.PageID = pageId
	fm.scratch.Header.SetFreeFlag()
	binary.LittleEndian.PutUint64(fm.scratch.Data[0:8], uint64(fm.freeHead))
	fm.scratch.SerializeTo(fm.pageBytes(pageId))

	fm.freeHead = pageId
	fm.writeMeta()
	return nil
}

// Sync flushes the mapping and the file to stable storage.
func (fm *FileManager) Sync() error {
	if fm.File == nil {
		return util.ErrFileClosed
	}
	if err := msync(fm); err != nil {
		return fmt.Errorf("sync mapping: %w", err)
	}
	if err := fm.File.Sync(); err != nil {
		return fmt.Errorf("sync file: %w", err)
	}
	return nil
}

/**
* CLOSE FUNCTION
**/
func (fm *FileManager) Close() error {
	if fm == nil || fm.File == nil {
		return nil // Idempotent
	}

	var err error
	if e := msync(fm); e != nil {
		err = errors.Join(err, fmt.Errorf("sync mapping: %w", e))
	}
	if e := munmap(fm); e != nil {
		err = errors.Join(err, fmt.Errorf("[close] unmap file fail: %w", e))
	}
	if e := fm.File.Sync(); e != nil {
		err = errors.Join(err, fmt.Errorf("sync file: %w", e))
	}
	if e := fm.File.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", e))
	}
	fm.File = nil
	return err
}

// ===================== HELPER FUNCTION =====================

func (fm *FileManager) checkPage(pageId util.PageID) error {
	if fm.File == nil {
		return util.ErrFileClosed
	}
	if pageId == metaPageID || pageId >= fm.numPages {
		return fmt.Errorf("page %d of %d: %w", pageId, fm.numPages, util.ErrPageOutOfBounds)
	}
	return nil
}

func (fm *FileManager) pageBytes(pageId util.PageID) []byte {
	offset := int64(pageId) * int64(util.PageSize)
	return fm.Data[offset : offset+int64(util.PageSize)]
}

func (fm *FileManager) isFree(pageId util.PageID) bool {
	flags := binary.LittleEndian.Uint16(fm.pageBytes(pageId)[12:14])
	return flags&page.FlagFree != 0
}

func (fm *FileManager) ensureCapacity(pageId util.PageID) error {
	offset := int64(pageId) * int64(util.PageSize)
	if offset+int64(util.PageSize) <= fm.Size {
		return nil
	}

	newSize := max(fm.Size*2, offset+int64(util.PageSize))
	if newSize > util.MAX_MAP_SIZE {
		return util.ErrMaxMapSizeExceeded
	}

	if err := munmap(fm); err != nil {
		return fmt.Errorf("[ensureCapacity] unmap file fail: %w", err)
	}
	if err := mmap(fm, newSize); err != nil {
		return fmt.Errorf("[ensureCapacity] map file fail: %w", err)
	}
	return nil
}

func (fm *FileManager) writeMeta() {
	fm.scratch.Reset()
	fm.scratch.Header.PageID = metaPageID
	copy(fm.scratch.Data[0:4], metaMagic)
	copy(fm.scratch.Data[4:20], fm.id[:])
	binary.LittleEndian.PutUint64(fm.scratch.Data[20:28], uint64(fm.numPages))
	binary.LittleEndian.PutUint64(fm.scratch.Data[28:36], uint64(fm.freeHead))
	fm.scratch.SerializeTo(fm.pageBytes(metaPageID))
}

func (fm *FileManager) readMeta() error {
	if err := page.DeserializeInto(fm.pageBytes(metaPageID), &fm.scratch); err != nil {
		return fmt.Errorf("meta page: %w", errors.Join(util.ErrBadFileHeader, err))
	}
	if string(fm.scratch.Data[0:4]) != metaMagic {
		return fmt.Errorf("meta page magic %q: %w", fm.scratch.Data[0:4], util.ErrBadFileHeader)
	}

	id, err := uuid.FromBytes(fm.scratch.Data[4:20])
	if err != nil {
		return fmt.Errorf("meta page id: %w", errors.Join(util.ErrBadFileHeader, err))
	}
	fm.id = id
	fm.numPages = util.PageID(binary.LittleEndian.Uint64(fm.scratch.Data[20:28]))
	fm.freeHead = util.PageID(binary.LittleEndian.Uint64(fm.scratch.Data[28:36]))

	if fm.numPages == 0 || int64(fm.numPages)*int64(util.PageSize) > fm.Size || fm.freeHead >= fm.numPages {
		return fmt.Errorf("meta page counts (pages=%d free=%d): %w", fm.numPages, fm.freeHead, util.ErrBadFileHeader)
	}
	return nil
}
