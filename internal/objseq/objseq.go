// Package objseq adapts a directory of per-frame Wavefront OBJ dumps into
// an evaluation source for the sampler. Many deformation tools hand off
// their results as one OBJ file per frame; the vertex order of the `v`
// statements is the stable per-object order the cache format requires.
package objseq

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	vmath "github.com/Faultbox/meshcache/pkg/math"
)

// DefaultPattern is the frame file naming scheme used when none is
// configured.
const DefaultPattern = "frame_%04d.obj"

var (
	ErrBadPattern   = errors.New("pattern must contain exactly one integer verb")
	ErrNoSuchObject = errors.New("unknown object")
	ErrNotAdvanced  = errors.New("no frame evaluated yet")
)

// Sequence is a sampler.Evaluator backed by per-frame OBJ files. It holds
// the current frame's positions between Advance and ReleaseFrame.
type Sequence struct {
	dir     string
	pattern string
	fps     float64
	object  string

	current []vmath.Vec3
}

// New opens an OBJ sequence in dir. pattern is a fmt verb pattern for
// frame file names (e.g. "frame_%04d.obj"); fps is the timeline rate the
// frames were exported at. The object name is the directory's base name.
func New(dir, pattern string, fps float64) (*Sequence, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if strings.Count(pattern, "%") != 1 {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening sequence dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sequence path is not a directory: %s", dir)
	}

	return &Sequence{
		dir:     dir,
		pattern: pattern,
		fps:     fps,
		object:  filepath.Base(filepath.Clean(dir)),
	}, nil
}

// Object returns the name of the single object this sequence evaluates.
func (s *Sequence) Object() string { return s.object }

// FramePath returns the file path for a frame index.
func (s *Sequence) FramePath(frame int) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.pattern, frame))
}

// Advance loads the OBJ file for the given frame. A missing or unreadable
// frame file is an evaluation failure, not a skipped frame.
func (s *Sequence) Advance(frame int) error {
	path := s.FramePath(frame)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("frame %d is not available: %w", frame, err)
	}

	positions, err := parseOBJVertices(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	s.current = positions
	return nil
}

// VertexPositions returns the current frame's positions in `v` statement
// order.
func (s *Sequence) VertexPositions(object string) ([]vmath.Vec3, error) {
	if object != s.object {
		return nil, fmt.Errorf("%w: %q (sequence holds %q)", ErrNoSuchObject, object, s.object)
	}
	if s.current == nil {
		return nil, ErrNotAdvanced
	}
	return s.current, nil
}

// FPS returns the configured timeline rate.
func (s *Sequence) FPS() float64 { return s.fps }

// ReleaseFrame drops the current frame's positions. The sampler copies
// them before calling this.
func (s *Sequence) ReleaseFrame() {
	s.current = nil
}

// parseOBJVertices extracts the positions of every `v` statement, in file
// order. All other statements (normals, faces, groups) are skipped.
func parseOBJVertices(data []byte) ([]vmath.Vec3, error) {
	var positions []vmath.Vec3

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "v" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: vertex with %d components", lineNo, len(fields)-1)
		}

		var v vmath.Vec3
		for i, dst := range []*float32{&v.X, &v.Y, &v.Z} {
			f, err := strconv.ParseFloat(fields[i+1], 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			*dst = float32(f)
		}
		positions = append(positions, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}
