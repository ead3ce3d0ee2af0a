// Package sampler drives an evaluation source across an inclusive frame
// range and collects the deformed vertex positions into an mdd.Clip.
//
// Sampling is strictly sequential: each frame's evaluation may depend on
// simulated state from the previous frame, so the evaluator is advanced one
// frame at a time and only one sampling run may drive an evaluator at once.
package sampler

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshcache/pkg/mdd"
	vmath "github.com/Faultbox/meshcache/pkg/math"
)

// Configuration errors.
var (
	ErrInvalidRange = errors.New("invalid frame range")
	ErrInvalidFPS   = errors.New("frame rate must be positive")
)

// Evaluator is the host-side deformation source. Implementations own the
// scene/time state; Sample never mutates it except through Advance.
type Evaluator interface {
	// Advance moves the evaluation context to the given frame. Deformation,
	// simulation, and dependency updates for that time step complete before
	// Advance returns.
	Advance(frame int) error

	// VertexPositions returns the evaluated positions of the named object in
	// vertex-index order. The order must be stable and identical across
	// frames; the cache format has no vertex identifiers and relies on it.
	// The returned slice may be reused by the evaluator on the next frame.
	VertexPositions(object string) ([]vmath.Vec3, error)

	// FPS returns the playback rate used to convert frame indices to
	// seconds. Must be positive.
	FPS() float64
}

// FrameReleaser is implemented by evaluators that hold temporary per-frame
// mesh state. ReleaseFrame is called once per frame, after the frame's
// positions have been copied out.
type FrameReleaser interface {
	ReleaseFrame()
}

// TopologyError reports a vertex count that changed between frames of a
// single sampling run. The format stores one global point count, so a
// ragged run cannot be exported.
type TopologyError struct {
	Object   string
	Frame    int
	Expected int
	Got      int
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("object %q: frame %d evaluated to %d points, expected %d",
		e.Object, e.Frame, e.Got, e.Expected)
}

// Sample evaluates object at every frame in [frameStart, frameEnd] and
// returns the collected clip. Timestamps are frame/fps seconds. The frame
// range is inclusive on both ends: Sample(e, o, 5, 5) yields one frame.
//
// Evaluation failures are not retried; the first one aborts the run. A
// frame whose vertex count differs from the first frame's aborts the run
// with a *TopologyError.
func Sample(eval Evaluator, object string, frameStart, frameEnd int) (*mdd.Clip, error) {
	if frameStart < 0 || frameStart > frameEnd {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, frameStart, frameEnd)
	}
	fps := eval.FPS()
	if fps <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidFPS, fps)
	}

	frameCount := frameEnd - frameStart + 1
	clip := &mdd.Clip{
		Times:  make([]float32, 0, frameCount),
		Frames: make([][]vmath.Vec3, 0, frameCount),
	}

	pointCount := -1
	for f := frameStart; f <= frameEnd; f++ {
		if err := eval.Advance(f); err != nil {
			return nil, fmt.Errorf("object %q: advancing to frame %d: %w", object, f, err)
		}

		positions, err := eval.VertexPositions(object)
		if err != nil {
			return nil, fmt.Errorf("object %q: evaluating frame %d: %w", object, f, err)
		}

		// Copy before releasing: the evaluator may reuse or free the
		// backing storage once the frame is released.
		frame := make([]vmath.Vec3, len(positions))
		copy(frame, positions)

		if r, ok := eval.(FrameReleaser); ok {
			r.ReleaseFrame()
		}

		if pointCount < 0 {
			pointCount = len(frame)
		} else if len(frame) != pointCount {
			return nil, &TopologyError{Object: object, Frame: f, Expected: pointCount, Got: len(frame)}
		}

		clip.Times = append(clip.Times, float32(float64(f)/fps))
		clip.Frames = append(clip.Frames, frame)
	}

	return clip, nil
}
