package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Style names a photo restyle preset.
type Style string

const (
	StyleRenaissance Style = "renaissance"
	StyleAnime       Style = "anime"
	StyleCyberpunk   Style = "cyberpunk"
	StyleNoir        Style = "noir"
)

// Styles returns every preset in display order.
func Styles() []Style {
	return []Style{StyleRenaissance, StyleAnime, StyleCyberpunk, StyleNoir}
}

var stylePrompts = map[Style]string{
	StyleRenaissance: "Repaint this photo as a Renaissance oil portrait with dramatic chiaroscuro lighting and rich, aged colors. Keep the subject's pose and expression.",
	StyleAnime:       "Redraw this photo as a 90s anime cel with clean line art, flat shading and expressive eyes. Keep the subject's pose and expression.",
	StyleCyberpunk:   "Restyle this photo as a neon-lit cyberpunk scene with glowing magenta and cyan accents and a rainy night atmosphere. Keep the subject's pose and expression.",
	StyleNoir:        "Convert this photo to high-contrast black and white film noir with deep shadows and venetian-blind lighting. Keep the subject's pose and expression.",
}

var (
	// ErrNotConfigured is returned by StyleImage when no API key was set.
	// Unlike analysis there is no silent fallback here.
	ErrNotConfigured = errors.New("ai not configured")
	// ErrNoStyledImage means the model answered without an image part.
	ErrNoStyledImage = errors.New("model returned no image")
)

// StyleImage restyles a captured snapshot. Input and output are data URLs.
// Errors propagate; the capture flow decides whether to keep the raw photo.
func (s *Service) StyleImage(ctx context.Context, dataURL string, style Style) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	prompt, ok := stylePrompts[style]
	if !ok {
		return "", fmt.Errorf("unknown style %q", style)
	}
	mime, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(prompt),
	}
	resp, err := s.client.Models.GenerateContent(ctx, s.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		})
	if err != nil {
		return "", fmt.Errorf("style image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return EncodeDataURL(part.InlineData.MIMEType, part.InlineData.Data), nil
			}
		}
	}
	return "", ErrNoStyledImage
}

// EncodeDataURL renders bytes as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into media type and bytes.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL")
	}
	mime, b64 := meta, false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		mime, b64 = m, true
	}
	if !b64 {
		return "", nil, errors.New("data URL is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	if mime == "" {
		mime = "text/plain"
	}
	return mime, data, nil
}
