// Package export runs one cache export over a selection of mesh objects:
// each object is sampled across the configured frame range and written to
// its own cache file. Objects fail independently; a topology or evaluation
// error on one object does not abort the rest of the selection.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshcache/internal/logger"
	"github.com/Faultbox/meshcache/internal/sampler"
	"github.com/Faultbox/meshcache/pkg/mdd"
)

// Configuration errors.
var (
	ErrNoSelection       = errors.New("no mesh objects selected")
	ErrOutputExists      = errors.New("output file already exists")
	ErrUnsupportedFormat = errors.New("unsupported cache format")
)

// Format identifies a cache file format. It is a closed set: adding a
// format means adding a constant and a codec, not branching call sites.
type Format int

// Supported formats.
const (
	FormatMDD Format = iota
)

// String returns the format's display name.
func (f Format) String() string {
	switch f {
	case FormatMDD:
		return "MDD"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// Extension returns the format's file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMDD:
		return mdd.Extension
	default:
		return ""
	}
}

// ParseFormat converts a config/CLI format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "mdd":
		return FormatMDD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// writeFile dispatches to the codec for the format.
func (f Format) writeFile(path string, clip *mdd.Clip) error {
	switch f {
	case FormatMDD:
		return mdd.WriteFile(path, clip)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// Options configures one export invocation.
type Options struct {
	// OutputPath is the cache file path. With more than one selected
	// object the object name is inserted before the extension so the
	// objects cannot overwrite each other's output.
	OutputPath string

	Format     Format
	FrameStart int
	FrameEnd   int

	// NoOverwrite refuses to replace an existing file. The default keeps
	// the legacy behavior: silent overwrite.
	NoOverwrite bool
}

// Result reports the outcome of one object's export.
type Result struct {
	Object string
	Path   string
	Frames int
	Points int
	Err    error
}

// Failed reports whether the object's export did not produce a file.
func (r Result) Failed() bool { return r.Err != nil }

// Run samples and writes every selected object. Configuration errors
// (empty selection, bad range, unusable output location) are returned
// before any file I/O; per-object sampling and write failures are
// recorded in that object's Result.
func Run(eval sampler.Evaluator, objects []string, opts Options) ([]Result, error) {
	if len(objects) == 0 {
		return nil, ErrNoSelection
	}
	if opts.FrameStart < 0 || opts.FrameStart > opts.FrameEnd {
		return nil, fmt.Errorf("%w: [%d, %d]", sampler.ErrInvalidRange, opts.FrameStart, opts.FrameEnd)
	}
	if opts.Format.Extension() == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}
	if info, err := os.Stat(filepath.Dir(opts.OutputPath)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("output directory is not usable: %s", filepath.Dir(opts.OutputPath))
	}

	results := make([]Result, 0, len(objects))
	for _, object := range objects {
		res := Result{
			Object: object,
			Path:   outputPath(opts.OutputPath, object, len(objects) > 1),
		}
		clip, err := exportOne(eval, object, res.Path, opts)
		res.Err = err
		if err == nil {
			res.Frames = clip.FrameCount()
			res.Points = clip.PointCount()
		}
		results = append(results, res)
	}
	return results, nil
}

func exportOne(eval sampler.Evaluator, object, path string, opts Options) (*mdd.Clip, error) {
	clip, err := sampler.Sample(eval, object, opts.FrameStart, opts.FrameEnd)
	if err != nil {
		logger.Error("sampling failed",
			zap.String("object", object),
			zap.Error(err))
		return nil, err
	}

	if opts.NoOverwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
		}
	}

	if err := opts.Format.writeFile(path, clip); err != nil {
		logger.Error("writing cache failed",
			zap.String("object", object),
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}

	logger.Info("exported mesh cache",
		zap.String("object", object),
		zap.String("path", path),
		zap.Int("frames", clip.FrameCount()),
		zap.Int("points", clip.PointCount()),
		zap.Float32("duration_s", clip.Duration()))
	return clip, nil
}

// outputPath resolves the target path for one object. A single-object
// export writes exactly the configured path; multi-object exports get
// "<base>_<object><ext>".
func outputPath(configured, object string, multi bool) string {
	if !multi {
		return configured
	}
	ext := filepath.Ext(configured)
	base := strings.TrimSuffix(configured, ext)
	return base + "_" + sanitize(object) + ext
}

// sanitize makes an object name safe to embed in a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
