// Package avatar is the command facade over the renderer link. Every
// operation returns a human-readable Result with an error flag; failures
// never propagate past this boundary as Go errors.
package avatar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TheSmallBoat/pinocchio/linklib"
)

// Command is the normalized (clip, emotion, gaze) tuple.
type Command struct {
	Clip    string
	Emotion string
	LookAt  string
}

func (c Command) withDefaults() Command {
	if c.Clip == "" {
		c.Clip = DefaultClip
	}
	if c.Emotion == "" {
		c.Emotion = DefaultEmotion
	}
	if c.LookAt == "" {
		c.LookAt = DefaultLookAt
	}
	return c
}

func (c Command) validate() error {
	if !ValidClip(c.Clip) {
		return fmt.Errorf("unknown clip %q", c.Clip)
	}
	if !ValidEmotion(c.Emotion) {
		return fmt.Errorf("unknown emotion %q", c.Emotion)
	}
	if !ValidGaze(c.LookAt) {
		return fmt.Errorf("unknown gaze target %q", c.LookAt)
	}
	return nil
}

// Step is one entry of a sequence: wait Delay, then dispatch Command.
type Step struct {
	Command Command
	Delay   time.Duration
}

// Result is what the tool layer presents to the caller.
type Result struct {
	Status  string `json:"status"`
	IsError bool   `json:"isError"`
}

func success(status string) Result { return Result{Status: status} }
func failure(status string) Result { return Result{Status: status, IsError: true} }

// Controller wraps a Link it does not own; the process composition root
// constructs both and tears the link down at shutdown.
type Controller struct {
	link *linklib.Link
	log  *zap.Logger
}

func NewController(link *linklib.Link, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{link: link, log: log}
}

// Send dispatches the full tuple as one tracked command and waits for the
// renderer's acknowledgment.
func (c *Controller) Send(cmd Command) Result {
	cmd = cmd.withDefaults()
	if err := cmd.validate(); err != nil {
		return failure(err.Error())
	}

	_, err := c.link.Request(KindCommand, map[string]any{
		"clip":    cmd.Clip,
		"emotion": cmd.Emotion,
		"lookAt":  cmd.LookAt,
	})
	if err != nil {
		c.log.Warn("command failed", zap.String("clip", cmd.Clip), zap.Error(err))
		return failure(describe(err))
	}
	return success(fmt.Sprintf("avatar playing %s (%s, looking %s)", cmd.Clip, cmd.Emotion, cmd.LookAt))
}

// Play dispatches a single animation clip.
func (c *Controller) Play(clip string) Result {
	if !ValidClip(clip) {
		return failure(fmt.Sprintf("unknown clip %q", clip))
	}
	if _, err := c.link.Request(KindPlay, map[string]any{"clip": clip}); err != nil {
		return failure(describe(err))
	}
	return success("avatar playing " + clip)
}

// Emote sets the avatar's emotion.
func (c *Controller) Emote(emotion string) Result {
	if !ValidEmotion(emotion) {
		return failure(fmt.Sprintf("unknown emotion %q", emotion))
	}
	if _, err := c.link.Request(KindEmotion, map[string]any{"emotion": emotion}); err != nil {
		return failure(describe(err))
	}
	return success("avatar feeling " + emotion)
}

// Gaze points the avatar's look target.
func (c *Controller) Gaze(target string) Result {
	if !ValidGaze(target) {
		return failure(fmt.Sprintf("unknown gaze target %q", target))
	}
	if _, err := c.link.Request(KindLookAt, map[string]any{"target": target}); err != nil {
		return failure(describe(err))
	}
	return success("avatar looking " + target)
}

// Fire sends the tuple untracked; no acknowledgment is awaited.
func (c *Controller) Fire(cmd Command) Result {
	cmd = cmd.withDefaults()
	if err := cmd.validate(); err != nil {
		return failure(err.Error())
	}

	err := c.link.Fire(linklib.Frame{Clip: cmd.Clip, Emotion: cmd.Emotion, LookAt: cmd.LookAt})
	if err != nil {
		return failure(describe(err))
	}
	return success(fmt.Sprintf("sent %s without waiting for acknowledgment", cmd.Clip))
}

// Sequence dispatches steps strictly in order, sleeping out each step's
// delay before it is issued. The first failing step aborts the rest; the
// Result names it and carries the trace of everything sent so far.
func (c *Controller) Sequence(steps []Step) Result {
	if len(steps) == 0 {
		return failure("sequence is empty")
	}

	trace := make([]string, 0, len(steps))
	for i, step := range steps {
		if step.Delay > 0 {
			time.Sleep(step.Delay)
		}

		res := c.Send(step.Command)
		if res.IsError {
			trace = append(trace, fmt.Sprintf("step %d/%d (%s) failed: %s",
				i+1, len(steps), step.Command.withDefaults().Clip, res.Status))
			return failure(strings.Join(trace, "; "))
		}
		trace = append(trace, fmt.Sprintf("step %d/%d: %s", i+1, len(steps), step.Command.withDefaults().Clip))
	}

	return success("sequence complete: " + strings.Join(trace, "; "))
}

// describe renders the link error taxonomy for humans.
func describe(err error) string {
	var remote *linklib.RemoteError
	switch {
	case errors.As(err, &remote):
		return "renderer rejected the command: " + remote.Message
	case errors.Is(err, linklib.ErrTimeout):
		return "renderer did not answer in time"
	case errors.Is(err, linklib.ErrConnectionFailed):
		return "could not reach the renderer"
	case errors.Is(err, linklib.ErrConnectionLost):
		return "link to the renderer was lost"
	}
	return err.Error()
}
