package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshcache/internal/logger"
	"github.com/Faultbox/meshcache/internal/sampler"
	"github.com/Faultbox/meshcache/pkg/mdd"
	vmath "github.com/Faultbox/meshcache/pkg/math"
)

func TestMain(m *testing.M) {
	// Tests run without console or file logging
	if err := logger.InitWithFileConfig("error", logger.FileConfig{}, false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// sceneEvaluator fakes a host scene holding several objects.
type sceneEvaluator struct {
	fps    float64
	frame  int
	meshes map[string]func(frame int) []vmath.Vec3
}

func (s *sceneEvaluator) Advance(frame int) error {
	s.frame = frame
	return nil
}

func (s *sceneEvaluator) VertexPositions(object string) ([]vmath.Vec3, error) {
	mesh, ok := s.meshes[object]
	if !ok {
		return nil, errors.New("object not found: " + object)
	}
	return mesh(s.frame), nil
}

func (s *sceneEvaluator) FPS() float64 { return s.fps }

func staticMesh(points int) func(int) []vmath.Vec3 {
	return func(frame int) []vmath.Vec3 {
		mesh := make([]vmath.Vec3, points)
		for i := range mesh {
			mesh[i] = vmath.Vec3{X: float32(i), Y: float32(frame)}
		}
		return mesh
	}
}

func testScene() *sceneEvaluator {
	return &sceneEvaluator{
		fps: 24,
		meshes: map[string]func(int) []vmath.Vec3{
			"cube":   staticMesh(8),
			"sphere": staticMesh(32),
		},
	}
}

func TestRun_SingleObject(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "cache.mdd")

	results, err := Run(testScene(), []string{"cube"}, Options{
		OutputPath: out,
		Format:     FormatMDD,
		FrameStart: 1,
		FrameEnd:   10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, "cube", res.Object)
	assert.Equal(t, out, res.Path, "single object export keeps the configured path")
	assert.Equal(t, 10, res.Frames)
	assert.Equal(t, 8, res.Points)

	clip, err := mdd.ParseFile(out)
	require.NoError(t, err)
	assert.Equal(t, 10, clip.FrameCount())
	assert.Equal(t, 8, clip.PointCount())
}

func TestRun_MultiObjectNaming(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "scene.mdd")

	results, err := Run(testScene(), []string{"cube", "sphere"}, Options{
		OutputPath: out,
		Format:     FormatMDD,
		FrameStart: 1,
		FrameEnd:   5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(dir, "scene_cube.mdd"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "scene_sphere.mdd"), results[1].Path)

	for _, res := range results {
		require.NoError(t, res.Err)
		_, err := os.Stat(res.Path)
		assert.NoError(t, err, "output file for %s", res.Object)
	}

	// The configured path itself was not written
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "multi-object export must not write the bare path")
}

func TestRun_EmptySelection(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(testScene(), nil, Options{
		OutputPath: filepath.Join(dir, "cache.mdd"),
		Format:     FormatMDD,
		FrameStart: 1,
		FrameEnd:   5,
	})
	require.ErrorIs(t, err, ErrNoSelection)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no file I/O on empty selection")
}

func TestRun_InvalidRange(t *testing.T) {
	_, err := Run(testScene(), []string{"cube"}, Options{
		OutputPath: filepath.Join(t.TempDir(), "cache.mdd"),
		Format:     FormatMDD,
		FrameStart: 10,
		FrameEnd:   5,
	})
	require.ErrorIs(t, err, sampler.ErrInvalidRange)
}

func TestRun_MissingOutputDir(t *testing.T) {
	_, err := Run(testScene(), []string{"cube"}, Options{
		OutputPath: filepath.Join(t.TempDir(), "missing", "cache.mdd"),
		Format:     FormatMDD,
		FrameStart: 1,
		FrameEnd:   5,
	})
	require.Error(t, err)
}

func TestRun_ObjectFailuresAreIsolated(t *testing.T) {
	scene := testScene()
	// cloth changes topology at frame 3
	scene.meshes["cloth"] = func(frame int) []vmath.Vec3 {
		points := 6
		if frame >= 3 {
			points = 7
		}
		return make([]vmath.Vec3, points)
	}

	dir := t.TempDir()
	results, err := Run(scene, []string{"cloth", "cube"}, Options{
		OutputPath: filepath.Join(dir, "cache.mdd"),
		Format:     FormatMDD,
		FrameStart: 1,
		FrameEnd:   5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var topoErr *sampler.TopologyError
	require.True(t, results[0].Failed())
	require.ErrorAs(t, results[0].Err, &topoErr)
	assert.Equal(t, "cloth", topoErr.Object)

	// The failed object wrote nothing
	_, statErr := os.Stat(results[0].Path)
	assert.True(t, os.IsNotExist(statErr), "failed export must not leave a file")

	// The healthy object still exported
	require.NoError(t, results[1].Err)
	_, statErr = os.Stat(results[1].Path)
	assert.NoError(t, statErr)
}

func TestRun_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "cache.mdd")
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0644))

	opts := Options{
		OutputPath:  out,
		Format:      FormatMDD,
		FrameStart:  1,
		FrameEnd:    2,
		NoOverwrite: true,
	}

	results, err := Run(testScene(), []string{"cube"}, opts)
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrOutputExists)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data), "guarded write must not touch the file")

	// Default mode overwrites silently
	opts.NoOverwrite = false
	results, err = Run(testScene(), []string{"cube"}, opts)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	clip, err := mdd.ParseFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, clip.FrameCount())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("mdd")
	require.NoError(t, err)
	assert.Equal(t, FormatMDD, f)
	assert.Equal(t, "MDD", f.String())
	assert.Equal(t, ".mdd", f.Extension())

	f, err = ParseFormat("MDD")
	require.NoError(t, err)
	assert.Equal(t, FormatMDD, f)

	_, err = ParseFormat("pc2")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOutputPath_Sanitize(t *testing.T) {
	got := outputPath("/tmp/cache.mdd", "Cube.001 v2", true)
	assert.Equal(t, "/tmp/cache_Cube.001_v2.mdd", got)
}
