package models

import (
	"fmt"
	"math/rand/v2"
)

// Avatar is the pseudonymous per-browser identity. It is generated locally,
// never registered anywhere, and snapshotted onto comments and confessions.
type Avatar struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Emoji string `json:"emoji"`
}

var (
	avatarAdjectives = []string{
		"Quiet", "Midnight", "Velvet", "Hidden", "Wandering", "Sleepy",
		"Electric", "Paper", "Golden", "Restless", "Foggy", "Neon",
	}
	avatarNouns = []string{
		"Fox", "Owl", "Cloud", "Comet", "Willow", "Sparrow",
		"Lantern", "River", "Moth", "Echo", "Ember", "Harbor",
	}
	avatarColors = []string{
		"#f87171", "#fb923c", "#facc15", "#4ade80", "#22d3ee",
		"#818cf8", "#e879f9", "#f472b6", "#94a3b8",
	}
	avatarEmojis = []string{
		"🦊", "🦉", "☁️", "☄️", "🌿", "🐦", "🏮", "🌊", "🦋", "🔮", "🔥", "⚓",
	}
)

// NewAvatar generates a random pseudonymous identity.
func NewAvatar() Avatar {
	adj := avatarAdjectives[rand.IntN(len(avatarAdjectives))]
	noun := avatarNouns[rand.IntN(len(avatarNouns))]
	return Avatar{
		Name:  fmt.Sprintf("%s %s %d", adj, noun, rand.IntN(90)+10),
		Color: avatarColors[rand.IntN(len(avatarColors))],
		Emoji: avatarEmojis[rand.IntN(len(avatarEmojis))],
	}
}
