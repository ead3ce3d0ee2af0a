// Package deform provides a built-in procedural evaluation source. It
// stands in for a host application's deformation system: a rest mesh is
// displaced by time-parameterized deformers, so caches and test fixtures
// can be produced without any external scene.
package deform

import (
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/ease"

	vmath "github.com/Faultbox/meshcache/pkg/math"
)

// Deformer displaces a single rest position at a point in time. Deformers
// must be deterministic: the same (p, t) always yields the same result, or
// repeated sampling runs would disagree.
type Deformer interface {
	Displace(p vmath.Vec3, t float64) vmath.Vec3
}

// Wave displaces points along Y with a sine wave travelling along X.
type Wave struct {
	Amplitude  float32
	Wavelength float32
	// Speed is the wave's travel rate in wavelengths per second.
	Speed float64
	// Attack ramps the amplitude in over the first Attack seconds with an
	// InOutQuad curve, so the animation starts from the rest pose.
	Attack float64
}

// Displace implements Deformer.
func (w Wave) Displace(p vmath.Vec3, t float64) vmath.Vec3 {
	env := 1.0
	if w.Attack > 0 {
		x := t / w.Attack
		if x < 1 {
			env = ease.InOutQuad(max(x, 0))
		}
	}

	phase := float64(p.X)/float64(w.Wavelength) - t*w.Speed
	p.Y += w.Amplitude * float32(env*math.Sin(2*math.Pi*phase))
	return p
}

// Spin rotates points around an axis through the origin at a constant
// angular rate.
type Spin struct {
	Axis      vmath.Vec3
	RadPerSec float64
}

// Displace implements Deformer.
func (s Spin) Displace(p vmath.Vec3, t float64) vmath.Vec3 {
	q := vmath.QuatFromAxisAngle(s.Axis.Normalize(), float32(t*s.RadPerSec))
	return q.Rotate(p)
}

// Object is one procedurally deformed mesh: a rest pose, an ordered
// deformer stack applied in local space, and a placement transform applied
// last.
type Object struct {
	Rest      []vmath.Vec3
	Deformers []Deformer
	Transform vmath.Mat4
}

// NewObject creates an object with an identity placement transform.
func NewObject(rest []vmath.Vec3, deformers ...Deformer) *Object {
	return &Object{
		Rest:      rest,
		Deformers: deformers,
		Transform: vmath.Identity(),
	}
}

// Grid returns the rest positions of an nx by nz point grid in the XZ
// plane, centered on the origin, in row-major (Z outer, X inner) order.
func Grid(nx, nz int, spacing float32) []vmath.Vec3 {
	points := make([]vmath.Vec3, 0, nx*nz)
	ox := -float32(nx-1) * spacing / 2
	oz := -float32(nz-1) * spacing / 2
	for z := 0; z < nz; z++ {
		for x := 0; x < nx; x++ {
			points = append(points, vmath.Vec3{
				X: ox + float32(x)*spacing,
				Z: oz + float32(z)*spacing,
			})
		}
	}
	return points
}

// Evaluator implements sampler.Evaluator over a set of procedural objects.
// Advance evaluates every object for the frame; the results are held until
// ReleaseFrame.
type Evaluator struct {
	fps     float64
	objects map[string]*Object
	current map[string][]vmath.Vec3
}

// NewEvaluator creates an evaluator with the given timeline rate.
func NewEvaluator(fps float64) *Evaluator {
	return &Evaluator{
		fps:     fps,
		objects: make(map[string]*Object),
	}
}

// AddObject registers an object under a name.
func (e *Evaluator) AddObject(name string, obj *Object) {
	e.objects[name] = obj
}

// Objects returns the registered object names, sorted.
func (e *Evaluator) Objects() []string {
	names := make([]string, 0, len(e.objects))
	for name := range e.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Advance evaluates all objects at the given frame.
func (e *Evaluator) Advance(frame int) error {
	if frame < 0 {
		return fmt.Errorf("frame %d is not a valid time step", frame)
	}
	t := float64(frame) / e.fps

	current := make(map[string][]vmath.Vec3, len(e.objects))
	for name, obj := range e.objects {
		positions := make([]vmath.Vec3, len(obj.Rest))
		for i, p := range obj.Rest {
			for _, d := range obj.Deformers {
				p = d.Displace(p, t)
			}
			positions[i] = obj.Transform.TransformPoint(p)
		}
		current[name] = positions
	}
	e.current = current
	return nil
}

// VertexPositions returns the evaluated positions of one object.
func (e *Evaluator) VertexPositions(object string) ([]vmath.Vec3, error) {
	positions, ok := e.current[object]
	if !ok {
		if _, known := e.objects[object]; !known {
			return nil, fmt.Errorf("unknown object %q", object)
		}
		return nil, fmt.Errorf("object %q: no frame evaluated", object)
	}
	return positions, nil
}

// FPS returns the timeline rate.
func (e *Evaluator) FPS() float64 { return e.fps }

// ReleaseFrame drops the evaluated positions of the current frame.
func (e *Evaluator) ReleaseFrame() {
	e.current = nil
}
