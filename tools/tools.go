// Package tools registers the avatar MCP tools. Handlers surface every
// domain failure as tool output with the error flag set; a Go error only
// escapes for malformed tool arguments.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/TheSmallBoat/pinocchio/avatar"
	"github.com/TheSmallBoat/pinocchio/intent"
	"github.com/TheSmallBoat/pinocchio/linklib"
)

// Register wires every tool onto the MCP server.
func Register(s *server.MCPServer, ctrl *avatar.Controller, link *linklib.Link, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	s.AddTool(mcp.NewTool("play_animation",
		mcp.WithDescription("Play a named animation clip on the avatar."),
		mcp.WithString("clip", mcp.Required(),
			mcp.Description("Animation clip to play."),
			mcp.Enum(avatar.Clips...),
		),
	), PlayAnimation(ctrl))

	s.AddTool(mcp.NewTool("set_emotion",
		mcp.WithDescription("Set the avatar's facial emotion."),
		mcp.WithString("emotion", mcp.Required(),
			mcp.Description("Emotion to display."),
			mcp.Enum(avatar.Emotions...),
		),
	), SetEmotion(ctrl))

	s.AddTool(mcp.NewTool("look_at",
		mcp.WithDescription("Point the avatar's gaze at a target."),
		mcp.WithString("target", mcp.Required(),
			mcp.Description("Gaze target."),
			mcp.Enum(avatar.GazeTargets...),
		),
	), LookAt(ctrl))

	s.AddTool(mcp.NewTool("perform",
		mcp.WithDescription("Describe what the avatar should do in plain language; "+
			"keyword matching picks the clip, emotion and gaze."),
		mcp.WithString("description", mcp.Required(),
			mcp.Description("Free-text description, e.g. 'wave happily at the user'."),
		),
	), Perform(ctrl, log))

	s.AddTool(mcp.NewTool("animate",
		mcp.WithDescription("Send a command without waiting for acknowledgment."),
		mcp.WithString("clip", mcp.Required(), mcp.Enum(avatar.Clips...)),
		mcp.WithString("emotion", mcp.Enum(avatar.Emotions...)),
		mcp.WithString("lookAt", mcp.Enum(avatar.GazeTargets...)),
	), Animate(ctrl))

	s.AddTool(mcp.NewTool("animation_sequence",
		mcp.WithDescription("Play several commands in order. Each step may name a clip, "+
			"emotion, gaze target and a delay in milliseconds before it runs."),
		mcp.WithArray("steps", mcp.Required(),
			mcp.Description(`Ordered steps, e.g. [{"clip":"wave"},{"clip":"jump","delay":2000}].`),
		),
	), AnimationSequence(ctrl))

	s.AddTool(mcp.NewTool("avatar_status",
		mcp.WithDescription("Report the renderer link: connected, url, pending commands."),
	), AvatarStatus(link))
}

func toolResult(res avatar.Result) *mcp.CallToolResult {
	if res.IsError {
		return mcp.NewToolResultError(res.Status)
	}
	return mcp.NewToolResultText(res.Status)
}

func PlayAnimation(ctrl *avatar.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clip, err := req.RequireString("clip")
		if err != nil {
			return nil, err
		}
		return toolResult(ctrl.Play(clip)), nil
	}
}

func SetEmotion(ctrl *avatar.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		emotion, err := req.RequireString("emotion")
		if err != nil {
			return nil, err
		}
		return toolResult(ctrl.Emote(emotion)), nil
	}
}

func LookAt(ctrl *avatar.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := req.RequireString("target")
		if err != nil {
			return nil, err
		}
		return toolResult(ctrl.Gaze(target)), nil
	}
}

func Perform(ctrl *avatar.Controller, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("description")
		if err != nil {
			return nil, err
		}

		parsed := intent.Parse(text)
		log.Debug("intent parsed",
			zap.String("text", text),
			zap.String("clip", parsed.Clip),
			zap.String("emotion", parsed.Emotion),
			zap.String("lookAt", parsed.LookAt),
		)

		res := ctrl.Send(avatar.Command{Clip: parsed.Clip, Emotion: parsed.Emotion, LookAt: parsed.LookAt})
		if res.IsError {
			return mcp.NewToolResultError(res.Status), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("understood as clip=%s emotion=%s lookAt=%s; %s",
			parsed.Clip, parsed.Emotion, parsed.LookAt, res.Status)), nil
	}
}

func Animate(ctrl *avatar.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		clip, err := req.RequireString("clip")
		if err != nil {
			return nil, err
		}
		cmd := avatar.Command{
			Clip:    clip,
			Emotion: req.GetString("emotion", avatar.DefaultEmotion),
			LookAt:  req.GetString("lookAt", avatar.DefaultLookAt),
		}
		return toolResult(ctrl.Fire(cmd)), nil
	}
}

// sequenceStep is the wire shape of one animation_sequence entry.
type sequenceStep struct {
	Clip    string `json:"clip"`
	Emotion string `json:"emotion"`
	LookAt  string `json:"lookAt"`
	Delay   int    `json:"delay"` // milliseconds before this step runs
}

func AnimationSequence(ctrl *avatar.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := req.GetArguments()["steps"]
		if !ok {
			return nil, fmt.Errorf("steps is required")
		}

		steps, err := decodeSteps(raw)
		if err != nil {
			return nil, err
		}
		return toolResult(ctrl.Sequence(steps)), nil
	}
}

func decodeSteps(raw any) ([]avatar.Step, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("steps: %w", err)
	}
	var in []sequenceStep
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("steps must be an array of step objects: %w", err)
	}

	steps := make([]avatar.Step, len(in))
	for i, s := range in {
		steps[i] = avatar.Step{
			Command: avatar.Command{Clip: s.Clip, Emotion: s.Emotion, LookAt: s.LookAt},
			Delay:   time.Duration(s.Delay) * time.Millisecond,
		}
	}
	return steps, nil
}

func AvatarStatus(link *linklib.Link) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(link.Status())
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
