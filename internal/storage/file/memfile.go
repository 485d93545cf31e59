package file

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// WriteRecord is one WritePage call seen by a MemFile
type WriteRecord struct {
	PageID util.PageID
	Data   [page.DATA_SIZE]byte
}

// MemFile is a Filer that keeps pages in memory. It records every write
// and returns the injected error, when set, from the matching operation.
type MemFile struct {
	id     FileID
	pages  map[util.PageID]*page.Page
	nextID util.PageID

	Writes []WriteRecord
	Reads  int

	ReadErr     error
	WriteErr    error
	AllocateErr error
	DisposeErr  error
}

var _ Filer = (*MemFile)(nil)

func NewMemFile() *MemFile {
	return &MemFile{
		id:     uuid.New(),
		pages:  make(map[util.PageID]*page.Page),
		nextID: 1,
	}
}

func (mf *MemFile) ID() FileID { return mf.id }

func (mf *MemFile) ReadPage(pageId util.PageID, dst *page.Page) error {
	if mf.ReadErr != nil {
		return mf.ReadErr
	}
	p, ok := mf.pages[pageId]
	if !ok {
		return fmt.Errorf("read page %d: %w", pageId, util.ErrPageNotAllocated)
	}
	mf.Reads++
	*dst = *p
	return nil
}

func (mf *MemFile) WritePage(pageId util.PageID, src *page.Page) error {
	if mf.WriteErr != nil {
		return mf.WriteErr
	}
	p, ok := mf.pages[pageId]
	if !ok {
		return fmt.Errorf("write page %d: %w", pageId, util.ErrPageNotAllocated)
	}
	*p = *src
	p.Header.PageID = pageId
	mf.Writes = append(mf.Writes, WriteRecord{PageID: pageId, Data: src.Data})
	return nil
}

func (mf *MemFile) AllocatePage() (util.PageID, error) {
	if mf.AllocateErr != nil {
		return util.InvalidPageID, mf.AllocateErr
	}
	pageId := mf.nextID
	mf.nextID++
	mf.pages[pageId] = &page.Page{Header: page.PageHeader{PageID: pageId}}
	return pageId, nil
}

func (mf *MemFile) DisposePage(pageId util.PageID) error {
	if mf.DisposeErr != nil {
		return mf.DisposeErr
	}
	if _, ok := mf.pages[pageId]; !ok {
		return fmt.Errorf("dispose page %d: %w", pageId, util.ErrPageNotAllocated)
	}
	delete(mf.pages, pageId)
	return nil
}

// Seed allocates a page holding data and returns its id
func (mf *MemFile) Seed(data []byte) util.PageID {
	pageId := mf.nextID
	mf.nextID++
	p := page.CreateTestPage(pageId, data)
	mf.pages[pageId] = p
	return pageId
}

// Stored returns the persisted content of a page
func (mf *MemFile) Stored(pageId util.PageID) (*page.Page, bool) {
	p, ok := mf.pages[pageId]
	return p, ok
}
