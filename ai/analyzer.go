// Package ai wraps the Gemini API for mood analysis and photo styling.
// Analysis is best-effort: any failure yields a neutral fallback so posting
// never blocks on the model. Styling is the opposite and surfaces its errors,
// the caller decides whether to fall back to the raw photo.
package ai

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/unsaidapp/unsaid/internal/config"
	"github.com/unsaidapp/unsaid/models"
)

const analysisSystemPrompt = `You are the mood analyst of an anonymous student confession board.
Given one confession, respond with JSON only:
- sentiment: one of happy, sad, angry, anxious, excited, neutral
- emoji: a single emoji capturing the mood
- tags: exactly three short lowercase topic tags
- colorTheme: a hex color matching the mood
- isSafe: false only for harassment, doxxing, threats of violence or self-harm instructions; venting and strong language are safe
- flagReason: short reason, only when isSafe is false`

// Service talks to the Gemini API. A Service with no client is valid and
// serves fallbacks only.
type Service struct {
	client        *genai.Client
	analysisModel string
	imageModel    string
	log           zerolog.Logger
}

// New builds a Service from config. With no API key configured the Service
// still works: Analyze returns the fallback mood and StyleImage reports
// ErrNotConfigured.
func New(ctx context.Context, conf *config.AIConfig, log zerolog.Logger) (*Service, error) {
	s := &Service{
		analysisModel: conf.AnalysisModel,
		imageModel:    conf.ImageModel,
		log:           log,
	}
	if conf.APIKey == "" {
		log.Warn().Msg("no API key configured, mood analysis disabled")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: conf.APIKey})
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

// NewWithClient builds a Service around an existing Gemini client.
func NewWithClient(client *genai.Client, analysisModel, imageModel string, log zerolog.Logger) *Service {
	return &Service{
		client:        client,
		analysisModel: analysisModel,
		imageModel:    imageModel,
		log:           log,
	}
}

// FallbackMood is the verdict used whenever analysis cannot run. Posting a
// confession must never fail because the model did.
func FallbackMood() models.Mood {
	return models.Mood{
		Sentiment:  models.SentimentNeutral,
		Emoji:      "😶",
		Tags:       []string{"anonymous", "student"},
		ColorTheme: "#64748b",
		IsSafe:     true,
	}
}

// Analyze classifies one confession. imageDataURL is optional context for
// media confessions and may be empty. Analyze never returns an error; any
// failure path collapses to FallbackMood.
func (s *Service) Analyze(ctx context.Context, text, imageDataURL string) models.Mood {
	if s.client == nil {
		return FallbackMood()
	}

	parts := []*genai.Part{genai.NewPartFromText(text)}
	if imageDataURL != "" {
		if mime, data, err := DecodeDataURL(imageDataURL); err == nil && strings.HasPrefix(mime, "image/") {
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		} else {
			s.log.Debug().Msg("skipping non-image attachment in analysis")
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.analysisModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    moodSchema(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("mood analysis failed, using fallback")
		return FallbackMood()
	}

	var mood models.Mood
	if err := json.Unmarshal([]byte(resp.Text()), &mood); err != nil {
		s.log.Warn().Err(err).Msg("mood analysis returned bad JSON, using fallback")
		return FallbackMood()
	}
	if !models.ValidSentiment(mood.Sentiment) {
		s.log.Warn().Str("sentiment", string(mood.Sentiment)).Msg("unknown sentiment, using fallback")
		return FallbackMood()
	}

	fallback := FallbackMood()
	if strings.TrimSpace(mood.Emoji) == "" {
		mood.Emoji = fallback.Emoji
	}
	if len(mood.Tags) == 0 {
		mood.Tags = fallback.Tags
	}
	if !validHexColor(mood.ColorTheme) {
		mood.ColorTheme = fallback.ColorTheme
	}
	if mood.IsSafe {
		mood.FlagReason = ""
	}
	return mood
}

func moodSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentiment": {
				Type: genai.TypeString,
				Enum: []string{"happy", "sad", "angry", "anxious", "excited", "neutral"},
			},
			"emoji":      {Type: genai.TypeString},
			"tags":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"colorTheme": {Type: genai.TypeString},
			"isSafe":     {Type: genai.TypeBoolean},
			"flagReason": {Type: genai.TypeString},
		},
		Required: []string{"sentiment", "emoji", "tags", "colorTheme", "isSafe"},
	}
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
