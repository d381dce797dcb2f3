// Package pipeline orchestrates the frames-to-stereo conversion: it
// enumerates source frames, partitions them into chunks, runs the chunks
// on a bounded pool, and drives each frame through
// decode -> depth -> warp -> composite -> encode -> delete source.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"

	"github.com/stevecastle/parallax/compose"
	"github.com/stevecastle/parallax/depth"
	"github.com/stevecastle/parallax/jobqueue"
	"github.com/stevecastle/parallax/runners"
	"github.com/stevecastle/parallax/warp"
	_ "modernc.org/sqlite"
)

// Config is the immutable configuration for one run.
type Config struct {
	// FramesDir holds the source frames. Every regular file in it is
	// treated as a frame.
	FramesDir string

	// OutputDir receives the composite frames. Empty means a sibling of
	// FramesDir named "<base>_3d".
	OutputDir string

	ParallaxScale int
	Interpolation warp.Interpolation
	Layout        compose.Layout
	EyeOrder      compose.EyeOrder
	TargetWidth   int
	TargetHeight  int
	ChunkSize     int
	MaxWorkers    int
	JPEGQuality   int

	// KeepSources disables deletion of successfully converted source
	// frames. The default (false) consumes sources in place to bound
	// disk usage during long runs, matching the original tool.
	KeepSources bool

	// SerializeInference funnels depth estimation through a mutex for
	// estimators that are not safe for concurrent invocation.
	SerializeInference bool

	// LedgerPath, when set, mirrors chunk state into a SQLite database.
	LedgerPath string
}

// FrameError records a recoverable per-frame failure.
type FrameError struct {
	Frame string
	Stage string
	Err   error
}

func (e FrameError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Frame, e.Stage, e.Err)
}

// Summary reports the outcome of a run. Cancelled counts chunks that
// were cancelled before they started.
type Summary struct {
	Total     int
	Processed int
	Cancelled int
	Failures  []FrameError
}

// Pipeline converts a directory of frames into stereo composites.
type Pipeline struct {
	cfg       Config
	estimator depth.Estimator

	inferMu sync.Mutex

	mu      sync.Mutex
	summary Summary
}

// New validates the configuration and returns a Pipeline.
func New(cfg Config, estimator depth.Estimator) (*Pipeline, error) {
	if cfg.FramesDir == "" {
		return nil, errors.New("frames directory must be provided")
	}
	if estimator == nil {
		return nil, errors.New("depth estimator must be provided")
	}
	if cfg.ParallaxScale < 0 {
		return nil, fmt.Errorf("parallax scale must be non-negative, got %d", cfg.ParallaxScale)
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.MaxWorkers < 1 {
		return nil, fmt.Errorf("max workers must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = 100
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("jpeg quality must be 1..100, got %d", cfg.JPEGQuality)
	}
	if cfg.OutputDir == "" {
		base := filepath.Base(filepath.Clean(cfg.FramesDir))
		cfg.OutputDir = filepath.Join(filepath.Dir(filepath.Clean(cfg.FramesDir)), base+"_3d")
	}
	return &Pipeline{cfg: cfg, estimator: estimator}, nil
}

// OutputDir returns the resolved output directory.
func (p *Pipeline) OutputDir() string { return p.cfg.OutputDir }

// Run converts every frame in the source directory. Frame-level failures
// are recorded in the summary and never abort sibling chunks; only
// configuration-level problems return an error. Cancelling ctx stops the
// run at chunk granularity: in-flight chunks finish, pending ones do not
// start.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	frames, err := p.listFrames()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %v", p.cfg.OutputDir, err)
	}

	p.mu.Lock()
	p.summary = Summary{Total: len(frames)}
	p.mu.Unlock()

	if len(frames) == 0 {
		s := p.snapshot()
		return &s, nil
	}

	chunks := Partition(frames, p.cfg.ChunkSize)
	log.Printf("Processing %d frames in %d chunks (%d workers)", len(frames), len(chunks), p.cfg.MaxWorkers)

	queue, closeLedger, err := p.newQueue()
	if err != nil {
		return nil, err
	}
	defer closeLedger()

	var runWG sync.WaitGroup
	runWG.Add(len(chunks))
	r := runners.New(context.Background(), queue, func(runCtx context.Context, c *jobqueue.Chunk) error {
		defer runWG.Done()
		return p.processChunk(c)
	})

	for _, chunk := range chunks {
		if _, err := queue.AddChunk(chunk); err != nil {
			runWG.Done()
			p.record(FrameError{Frame: chunk[0], Stage: "enqueue", Err: err})
		}
	}

	// A cancelled context stops admission; chunks cancelled before they
	// ran still have to be accounted for so the wait below terminates.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			n := r.Stop()
			p.mu.Lock()
			p.summary.Cancelled += n
			p.mu.Unlock()
			for i := 0; i < n; i++ {
				runWG.Done()
			}
		case <-done:
		}
	}()

	runWG.Wait()
	close(done)
	r.Shutdown()

	s := p.snapshot()
	log.Printf("Run complete: %d/%d frames converted, %d failed", s.Processed, s.Total, len(s.Failures))
	return &s, nil
}

// listFrames returns the sorted paths of all regular files in the source
// directory. No extension filtering: anything that is a file is a frame.
func (p *Pipeline) listFrames() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.FramesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory %s: %v", p.cfg.FramesDir, err)
	}
	frames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			frames = append(frames, filepath.Join(p.cfg.FramesDir, e.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}

func (p *Pipeline) newQueue() (*jobqueue.Queue, func(), error) {
	if p.cfg.LedgerPath == "" {
		return jobqueue.NewQueue(p.cfg.MaxWorkers), func() {}, nil
	}
	db, err := sql.Open("sqlite", p.cfg.LedgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open chunk ledger %s: %v", p.cfg.LedgerPath, err)
	}
	return jobqueue.NewQueueWithDB(p.cfg.MaxWorkers, db), func() { _ = db.Close() }, nil
}

// processChunk runs a chunk's frames sequentially in list order. A bad
// frame is recorded and skipped; it never aborts the chunk.
func (p *Pipeline) processChunk(c *jobqueue.Chunk) error {
	for _, framePath := range c.Frames {
		info, err := os.Stat(framePath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if stage, err := p.processFrame(framePath); err != nil {
			log.Printf("frame %s failed at %s: %v", framePath, stage, err)
			p.record(FrameError{Frame: framePath, Stage: stage, Err: err})
			continue
		}
		p.mu.Lock()
		p.summary.Processed++
		p.mu.Unlock()
	}
	return nil
}

// processFrame drives one frame through the full stage sequence and
// returns the failing stage on error. The source is deleted only after
// the composite has been written.
func (p *Pipeline) processFrame(framePath string) (string, error) {
	src, err := loadImage(framePath)
	if err != nil {
		return "decode", err
	}

	field, err := p.estimateDepth(src)
	if err != nil {
		return "depth", err
	}
	depthGray := field.Normalize()

	rgba := toRGBA(src)
	left, right := warp.Render(rgba, depthGray, warp.Options{
		Scale:         p.cfg.ParallaxScale,
		Interpolation: p.cfg.Interpolation,
	})

	out := compose.Composite(left, right, compose.Options{
		Layout:       p.cfg.Layout,
		Order:        p.cfg.EyeOrder,
		TargetWidth:  p.cfg.TargetWidth,
		TargetHeight: p.cfg.TargetHeight,
	})

	outPath := filepath.Join(p.cfg.OutputDir, frameName(framePath)+".jpg")
	if err := compose.WriteJPEG(outPath, out, p.cfg.JPEGQuality); err != nil {
		return "write", err
	}

	if !p.cfg.KeepSources {
		if err := os.Remove(framePath); err != nil {
			return "delete", err
		}
	}
	return "", nil
}

func (p *Pipeline) estimateDepth(img image.Image) (*depth.Field, error) {
	if p.cfg.SerializeInference {
		p.inferMu.Lock()
		defer p.inferMu.Unlock()
	}
	return p.estimator.EstimateDepth(img)
}

func (p *Pipeline) record(fe FrameError) {
	p.mu.Lock()
	p.summary.Failures = append(p.summary.Failures, fe)
	p.mu.Unlock()
}

func (p *Pipeline) snapshot() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.summary
	s.Failures = append([]FrameError(nil), p.summary.Failures...)
	return s
}

// frameName is the source file's base name with the extension stripped.
func frameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
