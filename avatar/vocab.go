package avatar

// Command kinds understood by the renderer.
const (
	KindCommand = "command" // full (clip, emotion, lookAt) tuple
	KindPlay    = "play"
	KindEmotion = "emotion"
	KindLookAt  = "lookAt"
)

const (
	DefaultClip    = "idle"
	DefaultEmotion = "neutral"
	DefaultLookAt  = "user"
)

var Clips = []string{
	"idle", "wave", "jump", "walk", "run", "dance", "sit", "stand",
	"nod", "shake_head", "laugh", "think", "point", "clap", "bow",
}

var Emotions = []string{
	"neutral", "happy", "sad", "angry", "surprised",
	"confused", "excited", "bored", "shy", "confident",
}

var GazeTargets = []string{"user", "away", "down", "up", "left", "right"}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func ValidClip(s string) bool    { return contains(Clips, s) }
func ValidEmotion(s string) bool { return contains(Emotions, s) }
func ValidGaze(s string) bool    { return contains(GazeTargets, s) }
