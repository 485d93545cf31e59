package buffer

import (
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// FrameDesc is the bookkeeping for one pool slot.
//
//	!valid => pinCount == 0, !dirty, owner == nil
//	dirty  => valid
type FrameDesc struct {
	frameIndex int
	owner      file.Filer
	pageID     util.PageID
	pinCount   int32
	dirty      bool
	referenced bool // clock bit
	valid      bool
}

func (d *FrameDesc) FrameIndex() int     { return d.frameIndex }
func (d *FrameDesc) PageID() util.PageID { return d.pageID }
func (d *FrameDesc) PinCount() int32     { return d.pinCount }
func (d *FrameDesc) IsDirty() bool       { return d.dirty }
func (d *FrameDesc) IsReferenced() bool  { return d.referenced }
func (d *FrameDesc) IsValid() bool       { return d.valid }

// set maps the frame to a freshly loaded page, pinned once
func (d *FrameDesc) set(owner file.Filer, pageID util.PageID) {
	d.owner = owner
	d.pageID = pageID
	d.pinCount = 1
	d.dirty = false
	d.referenced = true
	d.valid = true
}

// clear resets the frame to its invalid baseline
func (d *FrameDesc) clear() {
	d.owner = nil
	d.pageID = util.InvalidPageID
	d.pinCount = 0
	d.dirty = false
	d.referenced = false
	d.valid = false
}

func (d *FrameDesc) ownedBy(id file.FileID) bool {
	return d.owner != nil && d.owner.ID() == id
}

func (d *FrameDesc) key() pageKey {
	return pageKey{file: d.owner.ID(), pageID: d.pageID}
}

// frameTable is the arena: descriptor i describes pages[i]
type frameTable struct {
	descs []FrameDesc
	pages []page.Page
}

func newFrameTable(size int) *frameTable {
	ft := &frameTable{
		descs: make([]FrameDesc, size),
		pages: make([]page.Page, size),
	}
	for i := range ft.descs {
		ft.descs[i].frameIndex = i
		ft.descs[i].clear()
	}
	return ft
}

// release drops whatever the frame held without writing it back
func (ft *frameTable) release(frameIdx int) {
	ft.descs[frameIdx].clear()
	ft.pages[frameIdx].Reset()
}
