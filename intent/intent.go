// Package intent turns free text into a normalized avatar command tuple.
//
// Matching is deliberately lexical: ordered substring scans over fixed
// vocabularies, first match wins, no scoring and no state. Deterministic
// control decisions only.
package intent

import "strings"

// Intent is the normalized (clip, emotion, gaze) tuple.
type Intent struct {
	Clip    string `json:"clip"`
	Emotion string `json:"emotion"`
	LookAt  string `json:"lookAt"`
}

const (
	DefaultClip    = "idle"
	DefaultEmotion = "neutral"
	DefaultLookAt  = "user"
)

// clipOrder is scanned front to back; the first clip whose literal name
// appears in the input wins.
var clipOrder = []string{
	"idle", "wave", "jump", "walk", "run", "dance", "sit", "stand",
	"nod", "shake_head", "laugh", "think", "point", "clap", "bow",
}

// emotionOrder maps each emotion to its synonym keywords, scanned in
// order. Adverbial stems are listed explicitly ("happily" is not a
// substring match for "happy").
var emotionOrder = []struct {
	name string
	keys []string
}{
	{"happy", []string{"happy", "happily", "joy", "glad", "cheerful", "smile"}},
	{"sad", []string{"sad", "sadly", "unhappy", "gloomy", "cry"}},
	{"angry", []string{"angry", "angrily", "mad", "furious", "rage"}},
	{"surprised", []string{"surprised", "surprise", "shocked", "amazed", "astonished"}},
	{"confused", []string{"confused", "confusing", "puzzled", "baffled", "unsure"}},
	{"excited", []string{"excited", "excitedly", "thrilled", "eager"}},
	{"bored", []string{"bored", "boring", "dull"}},
	{"shy", []string{"shy", "shyly", "bashful", "timid"}},
	{"confident", []string{"confident", "confidently", "proud", "bold"}},
}

// Parse maps text to an Intent. Pure and deterministic: equal inputs
// always yield equal tuples.
func Parse(text string) Intent {
	s := strings.ToLower(text)
	return Intent{
		Clip:    matchClip(s),
		Emotion: matchEmotion(s),
		LookAt:  matchGaze(s),
	}
}

func matchClip(s string) string {
	for _, clip := range clipOrder {
		if strings.Contains(s, clip) {
			return clip
		}
	}
	return DefaultClip
}

func matchEmotion(s string) string {
	for _, e := range emotionOrder {
		for _, key := range e.keys {
			if strings.Contains(s, key) {
				return e.name
			}
		}
	}
	return DefaultEmotion
}

// matchGaze applies fixed phrase checks in priority order: negated or
// averted looking beats "look down" beats "look up".
func matchGaze(s string) string {
	switch {
	case strings.Contains(s, "look away"),
		strings.Contains(s, "don't look"),
		strings.Contains(s, "do not look"),
		strings.Contains(s, "not look"):
		return "away"
	case strings.Contains(s, "look down"):
		return "down"
	case strings.Contains(s, "look up"):
		return "up"
	case strings.Contains(s, "look left"):
		return "left"
	case strings.Contains(s, "look right"):
		return "right"
	}
	return DefaultLookAt
}
