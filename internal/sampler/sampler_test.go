package sampler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	vmath "github.com/Faultbox/meshcache/pkg/math"
)

// fakeEvaluator serves scripted positions keyed by frame index.
type fakeEvaluator struct {
	fps       float64
	positions func(frame int) []vmath.Vec3

	frame       int
	advanceErr  error
	evalErr     error
	released    int
	current     []vmath.Vec3
	advanceLog  []int
	failAtFrame int // Advance fails at this frame if advanceErr is set
}

func (f *fakeEvaluator) Advance(frame int) error {
	if f.advanceErr != nil && frame == f.failAtFrame {
		return f.advanceErr
	}
	f.frame = frame
	f.advanceLog = append(f.advanceLog, frame)
	return nil
}

func (f *fakeEvaluator) VertexPositions(object string) ([]vmath.Vec3, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	f.current = f.positions(f.frame)
	return f.current, nil
}

func (f *fakeEvaluator) FPS() float64 { return f.fps }

func (f *fakeEvaluator) ReleaseFrame() {
	f.released++
	f.current = nil
}

func constantMesh(points int) func(int) []vmath.Vec3 {
	return func(frame int) []vmath.Vec3 {
		mesh := make([]vmath.Vec3, points)
		for i := range mesh {
			mesh[i] = vmath.Vec3{X: float32(i), Y: float32(frame), Z: 0}
		}
		return mesh
	}
}

func TestSample_SingleFrame(t *testing.T) {
	eval := &fakeEvaluator{fps: 24, positions: constantMesh(3)}

	clip, err := Sample(eval, "cube", 5, 5)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if clip.FrameCount() != 1 {
		t.Errorf("frame count = %d, want 1", clip.FrameCount())
	}
	if clip.PointCount() != 3 {
		t.Errorf("point count = %d, want 3", clip.PointCount())
	}
	want := float32(5.0 / 24.0)
	if clip.Times[0] != want {
		t.Errorf("timestamp = %v, want %v", clip.Times[0], want)
	}
}

func TestSample_FullRange(t *testing.T) {
	eval := &fakeEvaluator{fps: 24, positions: constantMesh(4)}

	clip, err := Sample(eval, "cube", 1, 250)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if clip.FrameCount() != 250 {
		t.Fatalf("frame count = %d, want 250", clip.FrameCount())
	}

	// Frames visited in ascending order, each exactly once
	for i, f := range eval.advanceLog {
		if f != i+1 {
			t.Fatalf("advance order broken at index %d: frame %d", i, f)
		}
	}

	// Timestamps strictly increasing
	for i := 1; i < len(clip.Times); i++ {
		if clip.Times[i] <= clip.Times[i-1] {
			t.Fatalf("timestamps not strictly increasing at frame %d: %v <= %v",
				i, clip.Times[i], clip.Times[i-1])
		}
	}

	// Frame content matches the frame it was sampled at
	if clip.Frames[0][0].Y != 1 {
		t.Errorf("first frame sampled at Y = %v, want 1", clip.Frames[0][0].Y)
	}
	if clip.Frames[249][0].Y != 250 {
		t.Errorf("last frame sampled at Y = %v, want 250", clip.Frames[249][0].Y)
	}
}

func TestSample_FrameZeroStart(t *testing.T) {
	eval := &fakeEvaluator{fps: 30, positions: constantMesh(1)}

	clip, err := Sample(eval, "cube", 0, 2)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if clip.Times[0] != 0 {
		t.Errorf("frame 0 timestamp = %v, want 0", clip.Times[0])
	}
}

func TestSample_InvalidRange(t *testing.T) {
	eval := &fakeEvaluator{fps: 24, positions: constantMesh(1)}

	tests := []struct {
		name       string
		start, end int
	}{
		{"start after end", 10, 5},
		{"negative start", -1, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Sample(eval, "cube", tc.start, tc.end)
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("expected ErrInvalidRange, got %v", err)
			}
			if len(eval.advanceLog) != 0 {
				t.Error("evaluator advanced despite invalid range")
			}
		})
	}
}

func TestSample_InvalidFPS(t *testing.T) {
	for _, fps := range []float64{0, -24} {
		eval := &fakeEvaluator{fps: fps, positions: constantMesh(1)}
		_, err := Sample(eval, "cube", 1, 2)
		if !errors.Is(err, ErrInvalidFPS) {
			t.Errorf("fps=%g: expected ErrInvalidFPS, got %v", fps, err)
		}
	}
}

func TestSample_TopologyMismatch(t *testing.T) {
	eval := &fakeEvaluator{
		fps: 24,
		positions: func(frame int) []vmath.Vec3 {
			// Frame 7 grows an extra vertex
			points := 4
			if frame == 7 {
				points = 5
			}
			return make([]vmath.Vec3, points)
		},
	}

	_, err := Sample(eval, "softbody", 5, 10)
	var topoErr *TopologyError
	if !errors.As(err, &topoErr) {
		t.Fatalf("expected *TopologyError, got %v", err)
	}
	if topoErr.Object != "softbody" {
		t.Errorf("error object = %q, want %q", topoErr.Object, "softbody")
	}
	if topoErr.Frame != 7 {
		t.Errorf("error frame = %d, want 7", topoErr.Frame)
	}
	if topoErr.Expected != 4 || topoErr.Got != 5 {
		t.Errorf("error counts = (%d, %d), want (4, 5)", topoErr.Expected, topoErr.Got)
	}
}

func TestSample_AdvanceErrorPropagates(t *testing.T) {
	sentinel := fmt.Errorf("simulation diverged")
	eval := &fakeEvaluator{
		fps:         24,
		positions:   constantMesh(2),
		advanceErr:  sentinel,
		failAtFrame: 3,
	}

	_, err := Sample(eval, "cloth", 1, 10)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped advance error, got %v", err)
	}

	// Context: object name and frame number in the message
	for _, want := range []string{"cloth", "frame 3"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}

	// No retry: frame 3 attempted once, loop stopped there
	if len(eval.advanceLog) != 2 {
		t.Errorf("advanced %d frames before failure, want 2", len(eval.advanceLog))
	}
}

func TestSample_EvaluationErrorPropagates(t *testing.T) {
	sentinel := fmt.Errorf("mesh evaluation failed")
	eval := &fakeEvaluator{fps: 24, positions: constantMesh(2), evalErr: sentinel}

	_, err := Sample(eval, "cube", 1, 10)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped evaluation error, got %v", err)
	}
}

func TestSample_ReleasesEveryFrame(t *testing.T) {
	eval := &fakeEvaluator{fps: 24, positions: constantMesh(2)}

	if _, err := Sample(eval, "cube", 1, 12); err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if eval.released != 12 {
		t.Errorf("released %d frames, want 12", eval.released)
	}
}

func TestSample_CopiesPositions(t *testing.T) {
	backing := []vmath.Vec3{{X: 1}, {X: 2}}
	eval := &fakeEvaluator{
		fps:       24,
		positions: func(int) []vmath.Vec3 { return backing },
	}

	clip, err := Sample(eval, "cube", 1, 1)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	// Mutating the evaluator's backing storage must not change the clip
	backing[0].X = 99
	if clip.Frames[0][0].X != 1 {
		t.Errorf("clip aliases evaluator storage: got X = %v", clip.Frames[0][0].X)
	}
}
