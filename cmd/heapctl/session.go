package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/fwheap/heap"
	"github.com/joshuapare/fwheap/heap/alloc"
	"github.com/joshuapare/fwheap/heap/dirty"
	"github.com/joshuapare/fwheap/internal/logger"
	"github.com/joshuapare/fwheap/internal/writer"
)

// session is one allocator over one region. Image-backed sessions track
// every byte the allocator writes and msync those pages on Close.
type session struct {
	region  *heap.Region
	a       *alloc.Allocator
	tracker *dirty.Tracker
	image   string
	created bool
}

// openSession maps the heap source described by the flags. An existing
// image is attached; a missing image is created at size bytes; no image
// means an anonymous mapping.
func openSession(size int, image string, margin int) (*session, error) {
	var (
		r      *heap.Region
		err    error
		attach bool
	)
	switch {
	case image == "":
		r, err = heap.New(size)
	default:
		_, statErr := os.Stat(image)
		switch {
		case statErr == nil:
			r, err = heap.Open(image)
			attach = true
		case errors.Is(statErr, os.ErrNotExist):
			r, err = heap.Create(image, size)
		default:
			err = statErr
		}
	}
	if err != nil {
		return nil, err
	}

	arena := r.Arena(margin)
	if arena == nil {
		_ = r.Close()
		return nil, fmt.Errorf("region of %d bytes is not larger than the %d byte margin", r.Size(), margin)
	}

	s := &session{region: r, image: image, created: image != "" && !attach}
	logger.Debug("region mapped", "image", image, "addr", r.Addr(), "mapped", r.Mapped())
	cfg := &alloc.Config{Logger: logger.L, Trace: logger.AllocTracing()}
	if image != "" {
		s.tracker = dirty.NewTracker(r)
		cfg.Tracker = s.tracker
	}

	if attach {
		s.a, err = alloc.Attach(arena, cfg)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("attach %s: %w", image, err)
		}
		logger.Info("attached heap image", "image", image, "usable", s.a.Len())
		printVerbose("Attached %s (%d bytes usable)\n", image, s.a.Len())
		return s, nil
	}

	s.a = alloc.New(cfg)
	s.a.Setup(arena)
	if !s.a.Initialized() {
		_ = r.Close()
		return nil, fmt.Errorf("region of %d bytes is too small for a heap", len(arena))
	}
	logger.Debug("heap set up", "image", image, "size", r.Size(),
		"arena", r.FreeBytes(margin), "base_loss", s.a.Base())
	if s.created {
		printVerbose("Created %s (%d bytes)\n", image, r.Size())
	}
	return s, nil
}

// openReadOnlySession attaches to an existing image without write access.
// Nothing is tracked or flushed; the allocator must only be read.
func openReadOnlySession(image string, margin int) (*session, error) {
	r, err := heap.OpenReadOnly(image)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	arena := r.Arena(margin)
	if arena == nil {
		_ = r.Close()
		return nil, fmt.Errorf("region of %d bytes is not larger than the %d byte margin", r.Size(), margin)
	}
	a, err := alloc.Attach(arena, &alloc.Config{Logger: logger.L})
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("attach %s: %w", image, err)
	}
	logger.Debug("attached read-only", "image", image, "addr", r.Addr(), "usable", a.Len())
	return &session{region: r, a: a, image: image}, nil
}

// snapshot writes the whole region, margin included, to w.
func (s *session) snapshot(w writer.Writer) error {
	if err := w.WriteImage(s.region.Bytes()); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Close flushes dirty pages for image-backed sessions and unmaps the region.
func (s *session) Close(ctx context.Context) error {
	var err error
	if s.tracker != nil {
		if s.tracker.Len() > 0 {
			printVerbose("Flushing %d dirty range(s)\n", s.tracker.Len())
		}
		err = s.tracker.Flush(ctx)
		if err != nil {
			logger.Error("flush failed", "image", s.image, "error", err)
		}
	}
	if cerr := s.region.Close(); err == nil {
		err = cerr
	}
	return err
}
