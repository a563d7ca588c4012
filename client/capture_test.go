package client

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsaidapp/unsaid/ai"
)

// --- local fakes ---

type fakeFrameSource struct {
	img        image.Image
	acquireErr error
	frameErr   error

	acquired bool
	acquires int
	releases int
	frames   int
}

func newFakeFrameSource() *fakeFrameSource {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	return &fakeFrameSource{img: img}
}

func (f *fakeFrameSource) Acquire(_ context.Context) error {
	f.acquires++
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired = true
	return nil
}

func (f *fakeFrameSource) Frame(_ context.Context) (image.Image, error) {
	f.frames++
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return f.img, nil
}

func (f *fakeFrameSource) Release() error {
	f.releases++
	f.acquired = false
	return nil
}

type fakeStylist struct {
	out      string
	err      error
	gotURL   string
	gotStyle ai.Style
}

func (f *fakeStylist) StyleImage(_ context.Context, dataURL string, style ai.Style) (string, error) {
	f.gotURL = dataURL
	f.gotStyle = style
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

// --- mirror tests ---

func TestMirror_FlipsHorizontally(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{B: 255, A: 255})

	out := mirror(src).(*image.RGBA)

	assert.Equal(t, uint8(255), out.RGBAAt(0, 0).B, "right pixel moved left")
	assert.Equal(t, uint8(255), out.RGBAAt(1, 0).R, "left pixel moved right")
}

func TestMirror_NonZeroOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 13, 21))
	src.SetRGBA(10, 20, color.RGBA{R: 255, A: 255})
	src.SetRGBA(12, 20, color.RGBA{G: 255, A: 255})

	out := mirror(src).(*image.RGBA)

	assert.Equal(t, image.Rect(0, 0, 3, 1), out.Bounds())
	assert.Equal(t, uint8(255), out.RGBAAt(0, 0).G)
	assert.Equal(t, uint8(255), out.RGBAAt(2, 0).R)
}

// --- CaptureSession tests ---

func TestCaptureSession_SnapBeforeOpen(t *testing.T) {
	sess := NewCaptureSession(newFakeFrameSource(), nil, zerolog.Nop())

	_, err := sess.Snap(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestCaptureSession_DoubleOpen(t *testing.T) {
	sess := NewCaptureSession(newFakeFrameSource(), nil, zerolog.Nop())

	require.NoError(t, sess.Open(context.Background()))
	assert.ErrorIs(t, sess.Open(context.Background()), ErrAlreadyAcquired)
	require.NoError(t, sess.Close())
}

func TestCaptureSession_CloseWithoutOpen(t *testing.T) {
	src := newFakeFrameSource()
	sess := NewCaptureSession(src, nil, zerolog.Nop())

	assert.NoError(t, sess.Close())
	assert.Zero(t, src.releases)
}

func TestCaptureSession_SnapProducesJPEGDataURL(t *testing.T) {
	src := newFakeFrameSource()
	sess := NewCaptureSession(src, nil, zerolog.Nop())
	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	snap, err := sess.Snap(context.Background(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Empty(t, snap.Style)
	assert.Greater(t, snap.Timestamp, int64(0))
	assert.True(t, strings.HasPrefix(snap.Image, "data:image/jpeg;base64,"))

	mime, data, err := ai.DecodeDataURL(snap.Image)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestCaptureSession_StyleApplied(t *testing.T) {
	stylist := &fakeStylist{out: "data:image/png;base64,c3R5bGVk"}
	sess := NewCaptureSession(newFakeFrameSource(), stylist, zerolog.Nop())
	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	snap, err := sess.Snap(context.Background(), ai.StyleNoir)
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,c3R5bGVk", snap.Image)
	assert.Equal(t, string(ai.StyleNoir), snap.Style)
	assert.Equal(t, ai.StyleNoir, stylist.gotStyle)
	assert.True(t, strings.HasPrefix(stylist.gotURL, "data:image/jpeg;base64,"), "stylist sees the raw capture")
}

func TestCaptureSession_StylistFailureKeepsRaw(t *testing.T) {
	stylist := &fakeStylist{err: errors.New("model is down")}
	sess := NewCaptureSession(newFakeFrameSource(), stylist, zerolog.Nop())
	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	snap, err := sess.Snap(context.Background(), ai.StyleAnime)
	require.NoError(t, err, "a styling failure never fails the snap")

	assert.True(t, strings.HasPrefix(snap.Image, "data:image/jpeg;base64,"))
	assert.Empty(t, snap.Style, "raw snapshots carry no style")
}

func TestCaptureSession_NoStylistKeepsRaw(t *testing.T) {
	sess := NewCaptureSession(newFakeFrameSource(), nil, zerolog.Nop())
	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	snap, err := sess.Snap(context.Background(), ai.StyleCyberpunk)
	require.NoError(t, err)
	assert.Empty(t, snap.Style)
}

func TestCaptureStyled_ReleasesOnSuccess(t *testing.T) {
	src := newFakeFrameSource()
	sess := NewCaptureSession(src, nil, zerolog.Nop())

	_, err := sess.CaptureStyled(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, src.acquires)
	assert.Equal(t, 1, src.releases, "source released after the flow")
	assert.False(t, src.acquired)
}

func TestCaptureStyled_ReleasesOnFrameFailure(t *testing.T) {
	src := newFakeFrameSource()
	src.frameErr = errors.New("camera unplugged")
	sess := NewCaptureSession(src, nil, zerolog.Nop())

	_, err := sess.CaptureStyled(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, 1, src.releases, "source released even when the snap fails")
}

func TestCaptureStyled_AcquireFailureNeverReleases(t *testing.T) {
	src := newFakeFrameSource()
	src.acquireErr = errors.New("camera busy")
	sess := NewCaptureSession(src, nil, zerolog.Nop())

	_, err := sess.CaptureStyled(context.Background(), "")
	assert.Error(t, err)
	assert.Zero(t, src.releases, "nothing to release after a failed acquire")

	// the session is reusable once the source recovers
	src.acquireErr = nil
	_, err = sess.CaptureStyled(context.Background(), "")
	assert.NoError(t, err)
}

// --- FileFrameSource tests ---

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestFileFrameSource_ServesFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	writeTestPNG(t, path, 8, 6)

	src := NewFileFrameSource(path)
	require.NoError(t, src.Acquire(context.Background()))

	img, err := src.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	require.NoError(t, src.Release())
}

func TestFileFrameSource_CyclesThroughFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeTestPNG(t, a, 2, 2)
	writeTestPNG(t, b, 4, 4)

	src := NewFileFrameSource(a, b)
	require.NoError(t, src.Acquire(context.Background()))
	defer src.Release()

	widths := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		img, err := src.Frame(context.Background())
		require.NoError(t, err)
		widths = append(widths, img.Bounds().Dx())
	}
	assert.Equal(t, []int{2, 4, 2}, widths)
}

func TestFileFrameSource_MissingFile(t *testing.T) {
	src := NewFileFrameSource(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, src.Acquire(context.Background()))
}

func TestFileFrameSource_NoFiles(t *testing.T) {
	src := NewFileFrameSource()
	assert.Error(t, src.Acquire(context.Background()))
}

func TestFileFrameSource_LifecycleGuards(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	writeTestPNG(t, path, 2, 2)

	src := NewFileFrameSource(path)

	_, err := src.Frame(context.Background())
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.ErrorIs(t, src.Release(), ErrNotAcquired)

	require.NoError(t, src.Acquire(context.Background()))
	assert.ErrorIs(t, src.Acquire(context.Background()), ErrAlreadyAcquired)
	require.NoError(t, src.Release())
}

func TestCaptureStyled_WithFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selfie.png")
	writeTestPNG(t, path, 16, 16)

	stylist := &fakeStylist{out: "data:image/png;base64,cG9ydHJhaXQ="}
	sess := NewCaptureSession(NewFileFrameSource(path), stylist, zerolog.Nop())

	snap, err := sess.CaptureStyled(context.Background(), ai.StyleRenaissance)
	require.NoError(t, err)
	assert.Equal(t, string(ai.StyleRenaissance), snap.Style)
	assert.Equal(t, "data:image/png;base64,cG9ydHJhaXQ=", snap.Image)
}
