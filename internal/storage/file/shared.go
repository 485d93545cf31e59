package file

import (
	"github.com/google/uuid"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

// FileID identifies a page file for the lifetime of the file, across reopens.
type FileID = uuid.UUID

// Filer is the page-oriented file the buffer pool reads from and writes back to.
// Page ids are handed out by AllocatePage and are not reused while the page is live.
type Filer interface {
	ID() FileID
	// ReadPage copies the stored page into dst.
	ReadPage(pageID util.PageID, dst *page.Page) error
	// WritePage persists src as the content of pageID.
	WritePage(pageID util.PageID, src *page.Page) error
	AllocatePage() (util.PageID, error)
	DisposePage(pageID util.PageID) error
}
