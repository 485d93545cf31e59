package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/bietkhonhungvandi212/bufmgr/internal/logger"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/bufmgr/internal/storage/file"
	"github.com/bietkhonhungvandi212/bufmgr/internal/telemetry"
	util "github.com/bietkhonhungvandi212/bufmgr/internal/utils"
)

var (
	configPath = flag.String("config", "", "Path to a yaml config file")
	numPages   = flag.Int("pages", 32, "Pages to allocate in the demo workload")
)

func main() {
	flag.Parse()

	opts, err := util.LoadOptions(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(opts.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(opts, log); err != nil {
		log.Fatal("bufmgr failed", zap.Error(err))
	}
}

func run(opts util.Options, log *zap.Logger) error {
	tel, shutdown, err := telemetry.New(opts.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewPoolMetrics(tel.Meter)
	if err != nil {
		return fmt.Errorf("init pool metrics: %w", err)
	}

	fm, err := file.NewFileManager(opts.Path, opts.InitialPages)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.Path, err)
	}
	defer fm.Close()

	bp, err := buffer.NewBufferPool(opts.BufferPoolSize,
		buffer.WithLogger(log),
		buffer.WithMetrics(metrics))
	if err != nil {
		return err
	}
	log.Info("buffer pool ready",
		zap.String("path", opts.Path),
		zap.String("file_id", fm.ID().String()),
		zap.Int("frames", bp.Size()))

	ids := make([]util.PageID, 0, *numPages)
	for i := 0; i < *numPages; i++ {
		pid, h, err := bp.AllocatePage(fm)
		if err != nil {
			return err
		}
		copy(h.Data(), fmt.Sprintf("page %d written at %s", pid, time.Now().Format(time.RFC3339)))
		if err := bp.UnpinPage(fm, pid, true); err != nil {
			return err
		}
		ids = append(ids, pid)
	}

	for _, pid := range ids {
		if _, err := bp.FetchPage(fm, pid); err != nil {
			return err
		}
		if err := bp.UnpinPage(fm, pid, false); err != nil {
			return err
		}
	}

	stats := bp.Stats()
	log.Info("workload done",
		zap.Int("pages", len(ids)),
		zap.Uint64("hits", stats.Hits),
		zap.Uint64("misses", stats.Misses),
		zap.Uint64("evictions", stats.Evictions),
		zap.Uint64("write_backs", stats.WriteBacks))

	if err := bp.Close(); err != nil {
		return err
	}
	return fm.Sync()
}
