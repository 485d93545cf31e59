package buffer

import (
	"sync"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// SharedPool serializes every pool operation behind one mutex so several
// goroutines can share a BufferPool. Page contents are not latched: two
// holders of the same page still have to coordinate their writes.
type SharedPool struct {
	mu sync.Mutex
	bp *BufferPool
}

func NewSharedPool(bp *BufferPool) *SharedPool {
	return &SharedPool{bp: bp}
}

func (sp *SharedPool) FetchPage(f file.Filer, pageID util.PageID) (PageHandle, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.FetchPage(f, pageID)
}

func (sp *SharedPool) UnpinPage(f file.Filer, pageID util.PageID, dirty bool) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.UnpinPage(f, pageID, dirty)
}

func (sp *SharedPool) AllocatePage(f file.Filer) (util.PageID, PageHandle, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.AllocatePage(f)
}

func (sp *SharedPool) DisposePage(f file.Filer, pageID util.PageID) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.DisposePage(f, pageID)
}

func (sp *SharedPool) FlushFile(f file.Filer) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.FlushFile(f)
}

func (sp *SharedPool) FlushPage(f file.Filer, pageID util.PageID) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.FlushPage(f, pageID)
}

func (sp *SharedPool) FlushAll() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.FlushAll()
}

func (sp *SharedPool) Stats() Stats {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.Stats()
}

func (sp *SharedPool) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.bp.Close()
}
