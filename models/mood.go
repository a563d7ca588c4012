package models

// Sentiment is the six-value mood classification produced by the analyzer.
type Sentiment string

const (
	SentimentHappy   Sentiment = "happy"
	SentimentSad     Sentiment = "sad"
	SentimentAngry   Sentiment = "angry"
	SentimentAnxious Sentiment = "anxious"
	SentimentExcited Sentiment = "excited"
	SentimentNeutral Sentiment = "neutral"
)

// ValidSentiment reports whether s is one of the six known values.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentHappy, SentimentSad, SentimentAngry, SentimentAnxious, SentimentExcited, SentimentNeutral:
		return true
	}
	return false
}

// Mood is the AI verdict attached to a confession at posting time.
type Mood struct {
	Sentiment  Sentiment `json:"sentiment"`
	Emoji      string    `json:"emoji"`
	Tags       []string  `json:"tags"`
	ColorTheme string    `json:"colorTheme"`
	IsSafe     bool      `json:"isSafe"`
	FlagReason string    `json:"flagReason,omitempty"`
}
