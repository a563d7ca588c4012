package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unsaidapp/unsaid/ai"
)

// FrameSource is the camera abstraction. It is an exclusive resource:
// acquired before the first frame, released exactly once when done.
type FrameSource interface {
	Acquire(ctx context.Context) error
	Frame(ctx context.Context) (image.Image, error)
	Release() error
}

// Stylist restyles a snapshot; failures propagate to the capture flow, which
// keeps the raw photo instead.
type Stylist interface {
	StyleImage(ctx context.Context, dataURL string, style ai.Style) (string, error)
}

var (
	ErrAlreadyAcquired = errors.New("frame source already acquired")
	ErrNotAcquired     = errors.New("frame source not acquired")
)

// Snapshot is one captured photo, styled or raw.
type Snapshot struct {
	ID        string `json:"id"`
	Image     string `json:"image"` // data URL
	Style     string `json:"style,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// CaptureSession drives one camera session. Open and Close bracket the
// source's lifetime; Snap works only in between. A session guards against
// double acquisition and Close is safe to call on any path, including after
// a failed Open.
type CaptureSession struct {
	mu       sync.Mutex
	source   FrameSource
	stylist  Stylist
	log      zerolog.Logger
	acquired bool
}

func NewCaptureSession(source FrameSource, stylist Stylist, log zerolog.Logger) *CaptureSession {
	return &CaptureSession{source: source, stylist: stylist, log: log}
}

func (s *CaptureSession) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired {
		return ErrAlreadyAcquired
	}
	if err := s.source.Acquire(ctx); err != nil {
		return fmt.Errorf("acquire frame source: %w", err)
	}
	s.acquired = true
	return nil
}

// Close releases the frame source. Closing an unopened session is a no-op.
func (s *CaptureSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return nil
	}
	s.acquired = false
	return s.source.Release()
}

// Snap grabs one frame, mirrors it to match a live preview, and encodes it
// as a JPEG data URL. With a style set the snapshot goes through the stylist;
// a styling failure logs and falls back to the raw capture, it never fails
// the snap.
func (s *CaptureSession) Snap(ctx context.Context, style ai.Style) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return Snapshot{}, ErrNotAcquired
	}

	frame, err := s.source.Frame(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture frame: %w", err)
	}
	dataURL, err := encodeJPEGDataURL(mirror(frame))
	if err != nil {
		return Snapshot{}, err
	}

	applied := ""
	if style != "" && s.stylist != nil {
		styled, err := s.stylist.StyleImage(ctx, dataURL, style)
		if err != nil {
			s.log.Warn().Err(err).Str("style", string(style)).Msg("styling failed, keeping raw capture")
		} else {
			dataURL = styled
			applied = string(style)
		}
	}

	return Snapshot{
		ID:        uuid.NewString(),
		Image:     dataURL,
		Style:     applied,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// CaptureStyled is the whole flow in one call: open, snap, release. The
// source is released on every path out, also when the snap fails.
func (s *CaptureSession) CaptureStyled(ctx context.Context, style ai.Style) (Snapshot, error) {
	if err := s.Open(ctx); err != nil {
		return Snapshot{}, err
	}
	defer s.Close()
	return s.Snap(ctx, style)
}

// mirror flips horizontally so the capture matches what a mirrored live
// preview showed.
func mirror(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	for y := 0; y < b.Dy(); y++ {
		for x, xr := 0, b.Dx()-1; x < xr; x, xr = x+1, xr-1 {
			l := dst.RGBAAt(x, y)
			dst.SetRGBA(x, y, dst.RGBAAt(xr, y))
			dst.SetRGBA(xr, y, l)
		}
	}
	return dst
}

func encodeJPEGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return ai.EncodeDataURL("image/jpeg", buf.Bytes()), nil
}

// FileFrameSource serves frames from image files on disk, standing in for a
// camera in the CLI and in tests. Files decode lazily; Frame cycles through
// them in order.
type FileFrameSource struct {
	paths    []string
	next     int
	acquired bool
}

func NewFileFrameSource(paths ...string) *FileFrameSource {
	return &FileFrameSource{paths: paths}
}

func (f *FileFrameSource) Acquire(_ context.Context) error {
	if f.acquired {
		return ErrAlreadyAcquired
	}
	if len(f.paths) == 0 {
		return errors.New("no frame files")
	}
	for _, p := range f.paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("frame file %s: %w", p, err)
		}
	}
	f.acquired = true
	return nil
}

func (f *FileFrameSource) Frame(_ context.Context) (image.Image, error) {
	if !f.acquired {
		return nil, ErrNotAcquired
	}
	path := f.paths[f.next%len(f.paths)]
	f.next++

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}

func (f *FileFrameSource) Release() error {
	if !f.acquired {
		return ErrNotAcquired
	}
	f.acquired = false
	return nil
}
