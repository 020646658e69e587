// Package sortify moves audio files into a folder hierarchy built from their tags and
// analysed properties, and can undo that by flattening the tree again.
package sortify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"go.senan.xyz/sortify/fileutil"
	"go.senan.xyz/sortify/metadata"
	"go.senan.xyz/sortify/sortpath"
)

var (
	ErrRunning = errors.New("a run is already in progress")
	ErrNoRoot  = errors.New("no root directory")
)

type State uint32

const (
	Idle State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

type Config struct {
	Tags     metadata.TagStore
	Analyzer metadata.Analyzer // may be nil if no order needs analysis
	Builder  sortpath.Builder
}

// Engine runs one sort, preview, or undo at a time. Runs happen in the background and
// report through the channel they return.
type Engine struct {
	resolver metadata.Resolver
	builder  sortpath.Builder

	running atomic.Bool
	state   atomic.Uint32

	mu     sync.Mutex
	ledger map[string]string // source path -> destination path
}

func New(cfg Config) *Engine {
	return &Engine{
		resolver: metadata.Resolver{Tags: cfg.Tags, Analyzer: cfg.Analyzer},
		builder:  cfg.Builder,
		ledger:   map[string]string{},
	}
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

// LastMoves returns the moves made by the last sort. It is only complete once that sort has
// finished.
func (e *Engine) LastMoves() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.ledger)
}

type SortOptions struct {
	Root string
	// Files to classify. If nil, every audio file under Root is used.
	Files         []string
	Order         sortpath.Order
	TempoAnalysis bool
	// Preview reports destinations without touching the filesystem.
	Preview bool
}

// Sort validates opts then classifies and moves each file in the background. The returned
// channel gets one ProgressEvent per file followed by a CompletionEvent, then it is closed.
func (e *Engine) Sort(ctx context.Context, opts SortOptions) (<-chan Event, error) {
	if err := opts.Order.Validate(); err != nil {
		return nil, fmt.Errorf("validate order: %w", err)
	}
	needs := opts.Order.Needs(opts.TempoAnalysis)
	if (needs.Tempo || needs.Key) && e.resolver.Analyzer == nil {
		return nil, fmt.Errorf("order %q: %w", opts.Order, metadata.ErrNoAnalyzer)
	}
	root, err := absRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}

	files, err := sortFiles(root, opts.Files)
	if err != nil {
		e.running.Store(false)
		return nil, err
	}

	kind := KindSort
	if opts.Preview {
		kind = KindPreview
	}
	r := e.start(kind, len(files))
	go e.finish(ctx, r, func() error {
		return e.sort(ctx, r, root, files, opts, needs)
	})
	return r.events, nil
}

// Undo moves every audio file below root, but not directly in it, back to root then removes
// empty directories. It reconciles against the tree as it is now, not against LastMoves.
func (e *Engine) Undo(ctx context.Context, root string) (<-chan Event, error) {
	root, err := absRoot(root)
	if err != nil {
		return nil, err
	}

	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}

	all, err := fileutil.Scan(root)
	if err != nil {
		e.running.Store(false)
		return nil, fmt.Errorf("scan: %w", err)
	}
	var files []string
	for _, path := range all {
		if filepath.Dir(path) != root {
			files = append(files, path)
		}
	}

	r := e.start(KindUndo, len(files))
	go e.finish(ctx, r, func() error {
		return e.undo(ctx, r, root, files)
	})
	return r.events, nil
}

type run struct {
	id     string
	total  int
	index  int
	events chan Event
	logger *slog.Logger
	done   CompletionEvent
}

func (r *run) progress(ev ProgressEvent) {
	r.index++
	ev.RunID, ev.Index, ev.Total = r.id, r.index, r.total

	switch ev.Status {
	case StatusMoved, StatusPreview:
		r.done.Moved++
	case StatusUnchanged:
		r.done.Unchanged++
	case StatusFailed:
		r.done.Failed++
	default:
		r.done.Skipped++
	}

	switch ev.Status {
	case StatusFailed:
		r.logger.Error("processing file", "path", ev.Path, "dest", ev.Dest, "err", ev.Err)
	case StatusSkipped, StatusCollision:
		r.logger.Warn("skipping file", "path", ev.Path, "status", ev.Status, "err", ev.Err)
	default:
		r.logger.Debug("processed file", "path", ev.Path, "dest", ev.Dest, "status", ev.Status)
	}

	r.events <- ev
}

func (e *Engine) start(kind Kind, total int) *run {
	e.state.Store(uint32(Running))

	e.mu.Lock()
	e.ledger = map[string]string{}
	e.mu.Unlock()

	id := uuid.NewString()
	return &run{
		id:     id,
		total:  total,
		events: make(chan Event, total+1), // never blocks the worker
		logger: slog.With("run", id, "kind", kind),
		done:   CompletionEvent{RunID: id, Kind: kind},
	}
}

func (e *Engine) finish(ctx context.Context, r *run, f func() error) {
	defer close(r.events)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return f()
	}()

	r.done.Err = err
	r.done.Summary = r.done.summarise()

	if err != nil {
		e.state.Store(uint32(Failed))
		r.logger.ErrorContext(ctx, "run failed", "err", err)
	} else {
		e.state.Store(uint32(Completed))
		r.logger.InfoContext(ctx, "run complete", "summary", r.done.Summary)
	}
	e.running.Store(false)
	r.events <- r.done
}

func (e *Engine) sort(ctx context.Context, r *run, root string, files []string, opts SortOptions, needs metadata.Needs) error {
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.progress(e.sortFile(ctx, root, path, opts, needs))
	}
	if opts.Preview {
		return nil
	}
	if _, err := fileutil.Reap(root); err != nil {
		return fmt.Errorf("remove empty dirs: %w", err)
	}
	return nil
}

func (e *Engine) sortFile(ctx context.Context, root, path string, opts SortOptions, needs metadata.Needs) ProgressEvent {
	ev := ProgressEvent{Path: path}
	name := filepath.Base(path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		ev.Status, ev.Err = StatusMissing, err
		ev.Message = fmt.Sprintf("missing %s", name)
		return ev
	}

	md := e.resolver.Resolve(ctx, path, needs)
	if md.Err != nil {
		ev.Status, ev.Err = StatusSkipped, md.Err
		ev.Message = fmt.Sprintf("skipped %s: %v", name, md.Err)
		return ev
	}

	folder := filepath.Join(e.builder.Build(md, opts.Order)...)
	ev.Dest = filepath.Join(root, folder, fileutil.SanitizeFilename(name))

	switch {
	case ev.Dest == path:
		ev.Status = StatusUnchanged
		ev.Message = fmt.Sprintf("%s already in %s", name, folder)
		return ev
	case opts.Preview:
		ev.Status = StatusPreview
		ev.Message = fmt.Sprintf("%s -> %s", name, folder)
		return ev
	}

	if err := os.MkdirAll(filepath.Dir(ev.Dest), os.ModePerm); err != nil {
		ev.Status, ev.Err = StatusFailed, fmt.Errorf("make dest dir: %w", err)
		ev.Message = fmt.Sprintf("failed %s: %v", name, ev.Err)
		return ev
	}
	if err := fileutil.Move(path, ev.Dest); err != nil {
		ev.Status, ev.Err = StatusFailed, fmt.Errorf("move: %w", err)
		ev.Message = fmt.Sprintf("failed %s: %v", name, ev.Err)
		return ev
	}

	e.mu.Lock()
	e.ledger[path] = ev.Dest
	e.mu.Unlock()

	ev.Status = StatusMoved
	ev.Message = fmt.Sprintf("moved %s -> %s", name, folder)
	return ev
}

func (e *Engine) undo(ctx context.Context, r *run, root string, files []string) error {
	var ctxErr error
	for _, path := range files {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		r.progress(undoFile(root, path))
	}
	if _, err := fileutil.Reap(root); err != nil {
		return errors.Join(ctxErr, fmt.Errorf("remove empty dirs: %w", err))
	}
	return ctxErr
}

func undoFile(root, path string) ProgressEvent {
	name := filepath.Base(path)
	ev := ProgressEvent{Path: path, Dest: filepath.Join(root, name)}

	switch err := fileutil.Move(path, ev.Dest); {
	case errors.Is(err, fileutil.ErrDestExists):
		ev.Status, ev.Err = StatusCollision, err
		ev.Message = fmt.Sprintf("%s already exists in root, left in place", name)
	case errors.Is(err, fs.ErrNotExist):
		ev.Status, ev.Err = StatusMissing, err
		ev.Message = fmt.Sprintf("missing %s", name)
	case err != nil:
		ev.Status, ev.Err = StatusFailed, fmt.Errorf("move: %w", err)
		ev.Message = fmt.Sprintf("failed %s: %v", name, ev.Err)
	default:
		ev.Status = StatusMoved
		ev.Message = fmt.Sprintf("restored %s", name)
	}
	return ev
}

func absRoot(root string) (string, error) {
	if root == "" {
		return "", ErrNoRoot
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %q: not a directory", root)
	}
	return root, nil
}

func sortFiles(root string, files []string) ([]string, error) {
	if files == nil {
		paths, err := fileutil.Scan(root)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		return paths, nil
	}
	paths := make([]string, 0, len(files))
	for _, path := range files {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		paths = append(paths, filepath.Clean(path))
	}
	return paths, nil
}
