package util

import "errors"

var (
	ErrInvalidPageId       = errors.New("invalid page id")
	ErrInvalidPageSize     = errors.New("invalid page size")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrInvalidInitialPages = errors.New("initial pages must be positive")
	ErrMaxMapSizeExceeded  = errors.New("initial size exceeds maximum mapping size")
	ErrPageOutOfBounds     = errors.New("page out of bounds")
	ErrPageNotAllocated    = errors.New("page is not allocated")
	ErrBadFileHeader       = errors.New("bad page file header")
	ErrFileManagerNil      = errors.New("file manager is nil")
	ErrFileClosed          = errors.New("file is closed")
	ErrInvalidPoolSize     = errors.New("invalid pool size")
	ErrOutBoundOfFrame     = errors.New("frame idx out of bound")

	// buffer pool taxonomy
	ErrNotFound           = errors.New("page not found in buffer pool")
	ErrDuplicateEntry     = errors.New("page already mapped to a frame")
	ErrPoolExhausted      = errors.New("all buffer frames are pinned")
	ErrIO                 = errors.New("i/o error")
	ErrNotPinned          = errors.New("page is not pinned")
	ErrPagePinned         = errors.New("page is pinned")
	ErrInvariantViolation = errors.New("buffer pool invariant violated")
	ErrPoolClosed         = errors.New("buffer pool is closed")
)
