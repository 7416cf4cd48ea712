// Package terminalmcp layers the spec.md §4.6 tool surface
// (terminal.run/status/write/signal/list/attach) over the session
// subsystem, exposed as MCP tools over stdio JSON-RPC.
package terminalmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/vladnoskv/mcp-terminal-awareness/internal/completionsink"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/config"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/logging"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/procadapter"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/rpcerrors"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/session"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/sessionstore"
)

// Server wraps the MCP server exposing the six terminal.* tools.
type Server struct {
	mcpServer *server.MCPServer
	store     *sessionstore.Store
	cfg       *config.Config
	logger    *logging.Logger
	sink      completionsink.Sink
}

// New builds a Server and registers every tool from spec.md §4.6.
func New(cfg *config.Config, store *sessionstore.Store, sink completionsink.Sink, log *logging.Logger) *Server {
	s := &Server{
		store:  store,
		cfg:    cfg,
		logger: log.WithFields(),
		sink:   sink,
	}

	s.mcpServer = server.NewMCPServer(
		"terminal-awareness",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio blocks, serving JSON-RPC 2.0 over newline-delimited stdio
// until stdin closes or the process is signaled.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("terminal.run",
			mcp.WithDescription("Run a shell command and wait for it to reach a terminal state (completed or error), classifying liveness along the way."),
			mcp.WithString("command", mcp.Required(), mcp.Description("The shell command to execute")),
			mcp.WithString("cwd", mcp.Description("Working directory for the command")),
			mcp.WithString("shell", mcp.Description("Override the default shell binary")),
			mcp.WithNumber("timeoutMs", mcp.Description("Kill the command after this many milliseconds (default 30000, 0 disables)")),
			mcp.WithNumber("quietMs", mcp.Description("Quiet window before completing after a prompt/exit (default 300)")),
			mcp.WithNumber("waitingMs", mcp.Description("Idle time before status becomes waiting (default 10000)")),
			mcp.WithNumber("stuckMs", mcp.Description("Idle time before status becomes possibly-stuck (default 45000)")),
			mcp.WithNumber("maxBufferBytes", mcp.Description("Output buffer byte cap (default 2000000)")),
		),
		s.runHandler(),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("terminal.status",
			mcp.WithDescription("Get the current status of a session."),
			mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id returned by terminal.run")),
			mcp.WithNumber("tail", mcp.Description("Number of trailing output bytes to include (default 2000)")),
		),
		s.statusHandler(),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("terminal.write",
			mcp.WithDescription("Write data to a session's stdin. Include a trailing newline to submit a line."),
			mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id")),
			mcp.WithString("data", mcp.Required(), mcp.Description("Bytes to write verbatim")),
		),
		s.writeHandler(),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("terminal.signal",
			mcp.WithDescription("Send a signal to a session: SIGINT, SIGTERM, KILL, or the synthetic CTRL_C."),
			mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id")),
			mcp.WithString("signal", mcp.Description("SIGINT (default), SIGTERM, KILL, or CTRL_C")),
		),
		s.signalHandler(),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("terminal.list",
			mcp.WithDescription("List all live sessions and their current status."),
		),
		s.listHandler(),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("terminal.attach",
			mcp.WithDescription("Return the current joined output buffer and status for a session."),
			mcp.WithString("sessionId", mcp.Required(), mcp.Description("The session id")),
		),
		s.attachHandler(),
	)
}

func (s *Server) runHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command, err := req.RequireString("command")
		if err != nil || command == "" {
			return mcp.NewToolResultError(rpcerrors.ErrEmptyCommand.Error()), nil
		}
		if s.cfg.MaxSessions > 0 && s.store.Count() >= s.cfg.MaxSessions {
			return mcp.NewToolResultError(fmt.Sprintf("at the %d concurrent session limit, wait for one to finish", s.cfg.MaxSessions)), nil
		}

		cwd := req.GetString("cwd", "")
		shell := req.GetString("shell", "")
		args := req.GetArguments()
		timeoutMs := int(numberArg(args, "timeoutMs", float64(session.DefaultTimeoutMs)))
		quietMs := int(numberArg(args, "quietMs", float64(session.DefaultQuietMs)))
		waitingMs := int(numberArg(args, "waitingMs", float64(session.DefaultWaitingMs)))
		stuckMs := int(numberArg(args, "stuckMs", float64(session.DefaultStuckMs)))
		maxBufferBytes := int64(numberArg(args, "maxBufferBytes", float64(session.DefaultMaxBufferBytes)))

		id := sessionstore.NewID()
		sess := session.New(session.Options{
			ID:             id,
			Command:        command,
			Cwd:            cwd,
			Shell:          shell,
			UsePTY:         s.cfg.UsePTY,
			QuietMs:        quietMs,
			WaitingMs:      waitingMs,
			StuckMs:        stuckMs,
			TimeoutMs:      timeoutMs,
			MaxBufferBytes: maxBufferBytes,
			Logger:         s.logger,
			Sink:           s.sink,
			OnProgress: func(ev session.ProgressEvent) {
				s.mcpServer.SendNotificationToAllClients("notifications/progress", map[string]any{
					"tool":          ev.Tool,
					"indeterminate": ev.Indeterminate,
					"message":       ev.Message,
				})
			},
		})
		s.store.Create(sess)

		kind := procadapter.KindPlain
		if s.cfg.UsePTY {
			kind = procadapter.KindPTY
			sess.EnableVT(procadapter.PTYCols, procadapter.PTYRows)
		}
		shellOverride := shell
		if shellOverride == "" {
			shellOverride = s.cfg.DefaultShell
		}

		spawnErr := sess.Start(func() (procadapter.Adapter, error) {
			return procadapter.Select(ctx, procadapter.SpawnRequest{
				Kind:    kind,
				Command: command,
				Cwd:     cwd,
				Shell:   shellOverride,
			}, func(err error) {
				s.logger.Warn("pty init failed, falling back to plain adapter", zap.Error(err))
			})
		})

		if spawnErr == nil {
			sess.StartIdleTimers()
			if timeoutMs > 0 {
				time.AfterFunc(time.Duration(timeoutMs)*time.Millisecond, func() {
					select {
					case <-sess.Done():
						return
					default:
					}
					sess.MarkTimedOut()
					_ = sess.Signal("SIGTERM")
					time.AfterFunc(2*time.Second, func() {
						select {
						case <-sess.Done():
						default:
							sess.Fail("Command timed out")
						}
					})
				})
			}
		}

		<-sess.Done()
		s.store.ScheduleEviction(id)

		snap := sess.Status()
		result := map[string]any{
			"sessionId":  id,
			"output":     sess.Joined(),
			"exitCode":   snap.ExitCode,
			"exitSignal": snap.ExitSignal,
			"success":    snap.ExitCode != nil && *snap.ExitCode == 0,
		}
		if snap.ErrorReason != "" {
			result["error"] = snap.ErrorReason
		}
		return structuredResult(result), nil
	}
}

func (s *Server) statusHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("sessionId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, ok := s.store.Lookup(id)
		if !ok {
			return mcp.NewToolResultError(rpcerrors.ErrUnknownSession.Error()), nil
		}
		tail := int(numberArg(req.GetArguments(), "tail", 2000))
		snap := sess.Status()

		result := map[string]any{
			"status":       string(snap.Status),
			"lastOutputAt": snap.LastOutputAt,
			"exitCode":     snap.ExitCode,
			"exitSignal":   snap.ExitSignal,
			"errorReason":  snap.ErrorReason,
			"text":         sess.Tail(tail),
		}
		if snap.TUIHint != "" {
			result["tuiHint"] = snap.TUIHint
		}
		return structuredResult(result), nil
	}
}

func (s *Server) writeHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("sessionId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := req.RequireString("data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, ok := s.store.Lookup(id)
		if !ok {
			return mcp.NewToolResultError(rpcerrors.ErrUnknownSession.Error()), nil
		}
		if err := sess.Write([]byte(data)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	}
}

func (s *Server) signalHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("sessionId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		signal := req.GetString("signal", "SIGINT")
		sess, ok := s.store.Lookup(id)
		if !ok {
			return mcp.NewToolResultError(rpcerrors.ErrUnknownSession.Error()), nil
		}
		if err := sess.Signal(signal); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	}
}

func (s *Server) listHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions := s.store.List()
		out := make([]map[string]any, 0, len(sessions))
		for _, sess := range sessions {
			snap := sess.Status()
			out = append(out, map[string]any{
				"id":           snap.ID,
				"status":       string(snap.Status),
				"lastOutputAt": snap.LastOutputAt,
				"exitCode":     snap.ExitCode,
				"exitSignal":   snap.ExitSignal,
				"errorReason":  snap.ErrorReason,
			})
		}
		return structuredResult(map[string]any{"sessions": out}), nil
	}
}

func (s *Server) attachHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("sessionId")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, ok := s.store.Lookup(id)
		if !ok {
			return mcp.NewToolResultError(rpcerrors.ErrUnknownSession.Error()), nil
		}
		snap := sess.Status()
		return structuredResult(map[string]any{
			"status": string(snap.Status),
			"output": sess.Joined(),
		}), nil
	}
}

// structuredResult renders value as the tool result's text content, JSON
// encoded so callers can parse it back into structured fields.
func structuredResult(value map[string]any) *mcp.CallToolResult {
	body, err := json.Marshal(value)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(body))
}

// numberArg extracts a numeric argument from a raw arguments map, matching
// the request's own fallback-to-GetArguments pattern for non-string types.
func numberArg(args map[string]any, key string, defaultValue float64) float64 {
	raw, ok := args[key]
	if !ok {
		return defaultValue
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return defaultValue
		}
		return f
	default:
		return defaultValue
	}
}
