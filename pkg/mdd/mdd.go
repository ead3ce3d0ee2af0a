// Package mdd implements the MDD vertex cache format (Motion Designer Data).
//
// An MDD file stores a baked vertex animation: a fixed header of frame and
// point counts, one float32 timestamp per frame, then every frame's vertex
// positions as float32 (x, y, z) triples in frame-major order. All values
// are big-endian. The format carries no magic number and no version field;
// readers are expected to know the layout out of band.
package mdd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	vmath "github.com/Faultbox/meshcache/pkg/math"
)

// Extension is the conventional file extension for MDD caches.
const Extension = ".mdd"

// headerSize is the byte length of the two int32 header fields.
const headerSize = 8

// MDD format errors.
var (
	ErrTruncatedData = errors.New("truncated MDD data")
	ErrInvalidHeader = errors.New("invalid MDD header")
	ErrEmptyClip     = errors.New("empty clip")
	ErrRaggedClip    = errors.New("ragged clip: frames have differing point counts")
)

// Clip is an in-memory vertex animation: one timestamp per frame and one
// position per vertex per frame. Every frame must hold the same number of
// points; correspondence between frames is purely positional, so vertex
// order must be identical across frames.
type Clip struct {
	Times  []float32
	Frames [][]vmath.Vec3
}

// FrameCount returns the number of frames in the clip.
func (c *Clip) FrameCount() int {
	return len(c.Frames)
}

// PointCount returns the number of vertices per frame.
// Returns 0 for a clip with no frames.
func (c *Clip) PointCount() int {
	if len(c.Frames) == 0 {
		return 0
	}
	return len(c.Frames[0])
}

// Duration returns the elapsed time covered by the clip in seconds.
func (c *Clip) Duration() float32 {
	if len(c.Times) == 0 {
		return 0
	}
	return c.Times[len(c.Times)-1] - c.Times[0]
}

// Bounds returns the axis-aligned bounding box of every position in every
// frame. Returns zero vectors for an empty clip.
func (c *Clip) Bounds() (min, max vmath.Vec3) {
	first := true
	for _, frame := range c.Frames {
		for _, p := range frame {
			if first {
				min, max = p, p
				first = false
				continue
			}
			min = min.Min(p)
			max = max.Max(p)
		}
	}
	return min, max
}

// EncodedSize returns the exact byte length of the clip's encoded form:
// 8 header bytes, 4 per timestamp, 12 per position.
func (c *Clip) EncodedSize() int64 {
	return encodedSize(int64(c.FrameCount()), int64(c.PointCount()))
}

func encodedSize(frames, points int64) int64 {
	return headerSize + 4*frames + 12*frames*points
}

// Validate checks that the clip can be encoded: at least one frame, at
// least one point, a timestamp for every frame, and no ragged frames.
func (c *Clip) Validate() error {
	if c.FrameCount() == 0 || c.PointCount() == 0 {
		return fmt.Errorf("%w: %d frames, %d points", ErrEmptyClip, c.FrameCount(), c.PointCount())
	}
	if len(c.Times) != c.FrameCount() {
		return fmt.Errorf("%w: %d timestamps for %d frames", ErrInvalidHeader, len(c.Times), c.FrameCount())
	}
	points := c.PointCount()
	for i, frame := range c.Frames {
		if len(frame) != points {
			return fmt.Errorf("%w: frame %d has %d points, expected %d", ErrRaggedClip, i, len(frame), points)
		}
	}
	return nil
}

// Encode serializes the clip to w in the fixed MDD layout. The clip is
// validated first; nothing is written if validation fails.
func Encode(w io.Writer, c *Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, int32(c.FrameCount())); err != nil {
		return fmt.Errorf("writing frame count: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, int32(c.PointCount())); err != nil {
		return fmt.Errorf("writing point count: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, c.Times); err != nil {
		return fmt.Errorf("writing timestamps: %w", err)
	}
	for i, frame := range c.Frames {
		if err := binary.Write(w, binary.BigEndian, frame); err != nil {
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}
	return nil
}

// EncodeBytes serializes the clip to a freshly allocated byte slice.
func EncodeBytes(c *Clip) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, c.EncodedSize()))
	if err := Encode(buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes an MDD byte stream into a Clip. It fails if the header
// counts are non-positive or the stream is shorter than the header declares.
// Trailing bytes beyond the declared payload are ignored, matching existing
// readers of the format.
func Parse(data []byte) (*Clip, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedData, len(data), headerSize)
	}

	frameCount := int32(binary.BigEndian.Uint32(data[0:4]))
	pointCount := int32(binary.BigEndian.Uint32(data[4:8]))
	if frameCount <= 0 || pointCount <= 0 {
		return nil, fmt.Errorf("%w: frameCount=%d pointCount=%d", ErrInvalidHeader, frameCount, pointCount)
	}

	// Size the payload by division so a hostile header cannot overflow
	// the expected-size arithmetic.
	payload := int64(len(data)) - headerSize
	if int64(frameCount) > payload/4 {
		return nil, fmt.Errorf("%w: %d bytes for %d frames", ErrTruncatedData, len(data), frameCount)
	}
	remaining := payload - 4*int64(frameCount)
	if int64(frameCount)*int64(pointCount) > remaining/12 {
		return nil, fmt.Errorf("%w: %d bytes for %d frames of %d points", ErrTruncatedData,
			len(data), frameCount, pointCount)
	}

	r := bytes.NewReader(data[headerSize:])

	clip := &Clip{
		Times:  make([]float32, frameCount),
		Frames: make([][]vmath.Vec3, frameCount),
	}
	if err := binary.Read(r, binary.BigEndian, clip.Times); err != nil {
		return nil, fmt.Errorf("%w: reading timestamps", ErrTruncatedData)
	}
	for i := range clip.Frames {
		frame := make([]vmath.Vec3, pointCount)
		if err := binary.Read(r, binary.BigEndian, frame); err != nil {
			return nil, fmt.Errorf("%w: reading frame %d", ErrTruncatedData, i)
		}
		clip.Frames[i] = frame
	}

	return clip, nil
}

// ParseFile decodes an MDD file from disk.
func ParseFile(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MDD file: %w", err)
	}
	return Parse(data)
}

// WriteFile encodes the clip to path. The clip is written to a temporary
// file in the target directory and renamed into place on success, so a
// failure mid-write never leaves a truncated cache at path.
func WriteFile(path string, c *Clip) error {
	if err := c.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, c); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache into place: %w", err)
	}
	return nil
}
