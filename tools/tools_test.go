package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TheSmallBoat/pinocchio/avatar"
	"github.com/TheSmallBoat/pinocchio/linklib"
)

func ackEverything(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env linklib.CommandEnvelope
			if json.Unmarshal(raw, &env) != nil || env.CommandID == "" {
				continue
			}
			data, _ := json.Marshal(linklib.ResponseEnvelope{Status: linklib.StatusSuccess, CommandID: env.CommandID})
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}))
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestPerformHandler(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := ackEverything(t)
	link := linklib.NewLink("ws://"+strings.TrimPrefix(srv.URL, "http://"),
		linklib.RetryPolicy{MaxRetries: 0, RetryDelay: 5 * time.Millisecond, CommandTimeout: time.Second}, nil)
	ctrl := avatar.NewController(link, nil)

	res, err := Perform(ctrl, nil)(context.Background(), callReq(map[string]any{
		"description": "Wave happily at the user",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "clip=wave emotion=happy lookAt=user")

	link.Disconnect()
	srv.Close()
}

func TestPlayAnimationHandlerRejectsUnknownClip(t *testing.T) {
	ctrl := avatar.NewController(linklib.NewLink("ws://localhost:1", linklib.DefaultRetryPolicy(), nil), nil)

	res, err := PlayAnimation(ctrl)(context.Background(), callReq(map[string]any{"clip": "moonwalk"}))
	require.NoError(t, err)
	require.True(t, res.IsError)

	_, err = PlayAnimation(ctrl)(context.Background(), callReq(nil))
	require.Error(t, err) // missing argument is a caller bug, not a domain failure
}

func TestDecodeSteps(t *testing.T) {
	steps, err := decodeSteps([]any{
		map[string]any{"clip": "wave"},
		map[string]any{"clip": "jump", "emotion": "excited", "delay": float64(2000)},
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Equal(t, "wave", steps[0].Command.Clip)
	require.Equal(t, time.Duration(0), steps[0].Delay)
	require.Equal(t, "excited", steps[1].Command.Emotion)
	require.Equal(t, 2*time.Second, steps[1].Delay)

	_, err = decodeSteps("not an array")
	require.Error(t, err)
}

func TestAvatarStatusHandler(t *testing.T) {
	link := linklib.NewLink("ws://renderer:8080", linklib.DefaultRetryPolicy(), nil)

	res, err := AvatarStatus(link)(context.Background(), callReq(nil))
	require.NoError(t, err)

	var st linklib.Status
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &st))
	require.False(t, st.Connected)
	require.Equal(t, "ws://renderer:8080", st.URL)
	require.Zero(t, st.PendingCommands)
}
