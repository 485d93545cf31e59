package buffer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/page"
	"github.com/bietkhonhungvandi212/bufmgr/internal/telemetry"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

/**
* BufferPool caches pages of any number of page files in a fixed set of frames.
* It is not safe for concurrent use: callers serialize access themselves
* or go through SharedPool.
**/
type BufferPool struct {
	table    *frameTable
	dir      *FrameDirectory
	replacer *ClockReplacer
	poolSize int
	closed   bool

	log     *zap.Logger
	metrics *telemetry.PoolMetrics
	stats   Stats
}

// Stats is a point-in-time view of the pool
type Stats struct {
	Capacity    int
	ValidFrames int
	Pinned      int
	Dirty       int
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	WriteBacks  uint64
}

type Option func(*BufferPool)

func WithLogger(log *zap.Logger) Option {
	return func(bp *BufferPool) { bp.log = log }
}

func WithMetrics(m *telemetry.PoolMetrics) Option {
	return func(bp *BufferPool) { bp.metrics = m }
}

func NewBufferPool(size int, opts ...Option) (*BufferPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size %d: %w", size, util.ErrInvalidPoolSize)
	}

	bp := &BufferPool{
		table:    newFrameTable(size),
		dir:      NewFrameDirectory(size),
		replacer: NewClockReplacer(size),
		poolSize: size,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(bp)
	}

	if bp.metrics == nil {
		m, err := telemetry.NewPoolMetrics(noop.NewMeterProvider().Meter(""))
		if err != nil {
			return nil, fmt.Errorf("noop metrics: %w", err)
		}
		bp.metrics = m
	}
	bp.stats.Capacity = size

	return bp, nil
}

// FetchPage pins the page and returns its handle, reading it from f on a miss.
func (bp *BufferPool) FetchPage(f file.Filer, pageID util.PageID) (PageHandle, error) {
	if bp.closed {
		return PageHandle{}, util.ErrPoolClosed
	}

	key := pageKey{file: f.ID(), pageID: pageID}
	if frameIdx, err := bp.dir.Lookup(key); err == nil {
		desc := &bp.table.descs[frameIdx]
		desc.pinCount++
		desc.referenced = true
		bp.stats.Hits++
		bp.metrics.Hits.Add(context.Background(), 1)
		return bp.handle(frameIdx), nil
	}

	bp.stats.Misses++
	bp.metrics.Misses.Add(context.Background(), 1)

	frameIdx, err := bp.allocFrame()
	if err != nil {
		return PageHandle{}, fmt.Errorf("[FetchPage] page %d: %w", pageID, err)
	}

	if err := f.ReadPage(pageID, &bp.table.pages[frameIdx]); err != nil {
		bp.table.release(frameIdx)
		bp.metrics.IOErrors.Add(context.Background(), 1)
		return PageHandle{}, fmt.Errorf("%w: read page %d of file %s: %w", util.ErrIO, pageID, key.file, err)
	}

	if err := bp.install(f, pageID, frameIdx); err != nil {
		return PageHandle{}, err
	}

	bp.log.Debug("page loaded",
		zap.Uint64("page_id", uint64(pageID)),
		zap.Int("frame", frameIdx),
		zap.Stringer("file", key.file))
	return bp.handle(frameIdx), nil
}

// UnpinPage drops one pin. Dirty is sticky until the page is written back.
func (bp *BufferPool) UnpinPage(f file.Filer, pageID util.PageID, dirty bool) error {
	frameIdx, err := bp.dir.Lookup(pageKey{file: f.ID(), pageID: pageID})
	if err != nil {
		return fmt.Errorf("unpin page %d: %w", pageID, err)
	}

	desc := &bp.table.descs[frameIdx]
	if desc.pinCount == 0 {
		return fmt.Errorf("unpin page %d: %w", pageID, util.ErrNotPinned)
	}

	desc.pinCount--
	if dirty {
		desc.dirty = true
	}
	return nil
}

// AllocatePage reserves a new page in f and pins a zeroed frame for it.
func (bp *BufferPool) AllocatePage(f file.Filer) (util.PageID, PageHandle, error) {
	if bp.closed {
		return util.InvalidPageID, PageHandle{}, util.ErrPoolClosed
	}

	pageID, err := f.AllocatePage()
	if err != nil {
		bp.metrics.IOErrors.Add(context.Background(), 1)
		return util.InvalidPageID, PageHandle{}, fmt.Errorf("%w: allocate page in file %s: %w", util.ErrIO, f.ID(), err)
	}

	frameIdx, err := bp.allocFrame()
	if err != nil {
		if derr := f.DisposePage(pageID); derr != nil {
			bp.log.Warn("allocated page leaked",
				zap.Uint64("page_id", uint64(pageID)),
				zap.Stringer("file", f.ID()),
				zap.Error(derr))
		}
		return util.InvalidPageID, PageHandle{}, fmt.Errorf("[AllocatePage] page %d: %w", pageID, err)
	}

	bp.table.pages[frameIdx].Reset()
	bp.table.pages[frameIdx].Header.PageID = pageID

	if err := bp.install(f, pageID, frameIdx); err != nil {
		return util.InvalidPageID, PageHandle{}, err
	}

	return pageID, bp.handle(frameIdx), nil
}

// DisposePage drops the cached copy, if any, and frees the page in f.
// A page that is not cached is only freed at the file.
func (bp *BufferPool) DisposePage(f file.Filer, pageID util.PageID) error {
	key := pageKey{file: f.ID(), pageID: pageID}

	if frameIdx, err := bp.dir.Lookup(key); err == nil {
		desc := &bp.table.descs[frameIdx]
		if desc.pinCount > 0 {
			return fmt.Errorf("dispose page %d (pin count %d): %w", pageID, desc.pinCount, util.ErrPagePinned)
		}
		if err := bp.dir.Remove(key); err != nil {
			return bp.invariant(frameIdx, "directory lost entry during dispose")
		}
		bp.table.release(frameIdx)
	}

	if err := f.DisposePage(pageID); err != nil {
		bp.metrics.IOErrors.Add(context.Background(), 1)
		return fmt.Errorf("%w: dispose page %d of file %s: %w", util.ErrIO, pageID, key.file, err)
	}
	return nil
}

// FlushFile writes back and drops every frame owned by f. If any of them is
// pinned nothing is written.
func (bp *BufferPool) FlushFile(f file.Filer) error {
	id := f.ID()

	for i := range bp.table.descs {
		desc := &bp.table.descs[i]
		if !desc.ownedBy(id) {
			continue
		}
		if !desc.valid {
			return bp.invariant(i, "invalid frame still owned by file")
		}
		if desc.pinCount > 0 {
			return fmt.Errorf("flush file %s: page %d (pin count %d): %w", id, desc.pageID, desc.pinCount, util.ErrPagePinned)
		}
	}

	for i := range bp.table.descs {
		desc := &bp.table.descs[i]
		if !desc.ownedBy(id) {
			continue
		}

		if desc.dirty {
			if err := bp.writeBack(i); err != nil {
				return err
			}
		}

		if err := bp.dir.Remove(desc.key()); err != nil {
			bp.table.release(i)
			return bp.invariant(i, "valid frame missing from directory")
		}
		bp.table.release(i)
	}

	return nil
}

// FlushPage writes back one cached page if it is dirty. The page stays cached
// and its pins are untouched.
func (bp *BufferPool) FlushPage(f file.Filer, pageID util.PageID) error {
	frameIdx, err := bp.dir.Lookup(pageKey{file: f.ID(), pageID: pageID})
	if err != nil {
		return fmt.Errorf("flush page %d: %w", pageID, err)
	}
	if !bp.table.descs[frameIdx].dirty {
		return nil
	}
	return bp.writeBack(frameIdx)
}

// FlushAll writes back every dirty frame and stops at the first failure.
func (bp *BufferPool) FlushAll() error {
	for i := range bp.table.descs {
		desc := &bp.table.descs[i]
		if desc.valid && desc.dirty {
			if err := bp.writeBack(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close writes back every valid dirty frame, pinned or not. Failures are
// logged and skipped since nothing can retry them once storage closes.
func (bp *BufferPool) Close() error {
	if bp.closed {
		return nil
	}

	flushed, failed := 0, 0
	for i := range bp.table.descs {
		desc := &bp.table.descs[i]
		if !desc.valid || !desc.dirty {
			continue
		}
		if err := bp.writeBack(i); err != nil {
			failed++
			bp.log.Warn("page not flushed at shutdown",
				zap.Uint64("page_id", uint64(desc.pageID)),
				zap.Int("frame", i),
				zap.Int32("pin_count", desc.pinCount),
				zap.Error(err))
			continue
		}
		flushed++
	}

	bp.closed = true
	bp.log.Info("buffer pool closed",
		zap.Int("flushed", flushed),
		zap.Int("failed", failed))
	return nil
}

func (bp *BufferPool) Stats() Stats {
	s := bp.stats
	s.ValidFrames, s.Pinned, s.Dirty = 0, 0, 0
	for i := range bp.table.descs {
		desc := &bp.table.descs[i]
		if !desc.valid {
			continue
		}
		s.ValidFrames++
		if desc.pinCount > 0 {
			s.Pinned++
		}
		if desc.dirty {
			s.Dirty++
		}
	}
	return s
}

func (bp *BufferPool) Size() int { return bp.poolSize }

// ===================== HELPER FUNCTION =====================

// allocFrame returns an invalid frame, evicting the clock victim if needed.
func (bp *BufferPool) allocFrame() (int, error) {
	frameIdx, err := bp.replacer.SelectVictim(bp.table.descs)
	if err != nil {
		return -1, err
	}
	if err := bp.evict(frameIdx); err != nil {
		return -1, err
	}
	return frameIdx, nil
}

// evict empties a victim frame. A failed write-back leaves the frame, its
// directory entry and its dirty bit as they were.
func (bp *BufferPool) evict(frameIdx int) error {
	desc := &bp.table.descs[frameIdx]
	if !desc.valid {
		bp.table.release(frameIdx)
		return nil
	}

	if desc.dirty {
		if err := bp.writeBack(frameIdx); err != nil {
			return err
		}
	}

	key := desc.key()
	if err := bp.dir.Remove(key); err != nil {
		bp.table.release(frameIdx)
		return bp.invariant(frameIdx, "evicted frame missing from directory")
	}

	bp.stats.Evictions++
	bp.metrics.Evictions.Add(context.Background(), 1)
	bp.log.Debug("frame evicted",
		zap.Int("frame", frameIdx),
		zap.Uint64("page_id", uint64(key.pageID)),
		zap.Stringer("file", key.file))

	bp.table.release(frameIdx)
	return nil
}

func (bp *BufferPool) writeBack(frameIdx int) error {
	desc := &bp.table.descs[frameIdx]
	if err := desc.owner.WritePage(desc.pageID, &bp.table.pages[frameIdx]); err != nil {
		bp.metrics.IOErrors.Add(context.Background(), 1)
		return fmt.Errorf("%w: write back page %d of file %s: %w", util.ErrIO, desc.pageID, desc.owner.ID(), err)
	}
	desc.dirty = false
	bp.stats.WriteBacks++
	bp.metrics.WriteBacks.Add(context.Background(), 1)
	return nil
}

// install maps a loaded frame in the directory and pins it. On failure the
// frame goes back to invalid.
func (bp *BufferPool) install(f file.Filer, pageID util.PageID, frameIdx int) error {
	if err := bp.dir.Insert(pageKey{file: f.ID(), pageID: pageID}, frameIdx); err != nil {
		bp.table.release(frameIdx)
		return bp.invariant(frameIdx, err.Error())
	}
	bp.table.descs[frameIdx].set(f, pageID)
	return nil
}

func (bp *BufferPool) invariant(frameIdx int, msg string) error {
	err := util.NewInvariantError(msg).With("frame", frameIdx)
	bp.log.Error("buffer pool invariant violated", zap.Int("frame", frameIdx), zap.String("detail", msg))
	return err
}

func (bp *BufferPool) handle(frameIdx int) PageHandle {
	desc := &bp.table.descs[frameIdx]
	return PageHandle{
		pool:   bp,
		frame:  frameIdx,
		file:   desc.owner.ID(),
		pageID: desc.pageID,
	}
}

// PageHandle refers to a pinned page by frame index. It stays usable until
// the holder unpins the page.
type PageHandle struct {
	pool   *BufferPool
	frame  int
	file   file.FileID
	pageID util.PageID
}

func (h PageHandle) PageID() util.PageID { return h.pageID }
func (h PageHandle) FrameIndex() int     { return h.frame }
func (h PageHandle) File() file.FileID   { return h.file }

func (h PageHandle) Page() *page.Page {
	return &h.pool.table.pages[h.frame]
}

func (h PageHandle) Data() []byte {
	return h.Page().Data[:]
}

// Valid reports whether the frame still holds the page the handle was issued for
func (h PageHandle) Valid() bool {
	if h.pool == nil {
		return false
	}
	desc := &h.pool.table.descs[h.frame]
	return desc.valid && desc.pageID == h.pageID && desc.ownedBy(h.file)
}
