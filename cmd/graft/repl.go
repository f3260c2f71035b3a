package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"graft/internal/agent"
	"graft/internal/apply"
	"graft/internal/bundle"
	"graft/internal/config"
	"graft/internal/display"
	"graft/internal/llm"
	"graft/internal/logging"
	"graft/internal/parse"
	"graft/internal/prompt"
	"graft/internal/store"
	"graft/internal/tokens"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive shell",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl()
	},
}

// repl holds the interactive shell's state.
type repl struct {
	cfg         *config.Config
	ws          string
	d           *display.Display
	client      llm.Client
	tracker     *tokens.Tracker
	bundler     *bundle.Bundler
	engine      *apply.Engine
	session     *store.Session
	queuedFiles []string
	autoApply   bool
	agentRounds int
	running     bool
}

const replHelp = `Available commands:
  /help               Show this help
  /model [name]       Show or switch the model
  /files <paths>      Queue files as context for the next message
  /agent [rounds]     Run the agent loop on the next message
  /auto-apply [on|off] Toggle confirmation-free applying
  /tokens             Show context usage
  /session            Show the session id
  /history            List saved sessions
  /resume <id>        Resume a saved session (id prefix accepted)
  /clear              Start a fresh session
  /compact            Shrink history to first + last messages
  /rewind [n]         Drop the last n exchanges (default 1)
  /export [file]      Export the session to a file or the clipboard
  /quit               Save the session and exit`

func runRepl() error {
	cfg, ws, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d := display.New()
	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		return err
	}

	r := &repl{
		cfg:     cfg,
		ws:      ws,
		d:       d,
		client:  client,
		bundler: bundle.New(cfg.Bundling, ws),
		tracker: tokens.NewTracker(client.GetModel(), cfg.Agent.ContextWindow,
			cfg.Agent.WarningThreshold, cfg.Agent.CriticalThreshold),
		session:   store.NewSession(client.GetModel()),
		autoApply: cfg.Agent.AutoApply,
	}
	r.engine = apply.New(apply.Options{
		Root:            ws,
		BlockedPatterns: cfg.Workspace.BlockedWritePatterns,
		CreateBackups:   cfg.Agent.CreateBackups,
	}, d)

	d.Welcome(cfg.Version, client.GetModel(), cfg.Agent.ContextWindow)
	logging.Repl("Shell started: session=%s model=%s", r.session.ID, client.GetModel())

	r.running = true
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for r.running {
		fmt.Print("You> ")
		if !scanner.Scan() {
			r.quit()
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			r.handleCommand(text)
		} else {
			r.sendMessage(text)
		}
	}
	return nil
}

func (r *repl) handleCommand(text string) {
	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/help":
		r.d.Info(replHelp)
	case "/model":
		r.handleModel(arg)
	case "/files":
		r.handleFiles(arg)
	case "/agent":
		rounds := r.cfg.Agent.MaxRounds
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			rounds = n
		}
		r.agentRounds = rounds
		r.d.Info(fmt.Sprintf("Agent mode enabled for the next message (%d rounds).", rounds))
	case "/auto-apply":
		switch strings.ToLower(arg) {
		case "on":
			r.autoApply = true
		case "off":
			r.autoApply = false
		default:
			r.autoApply = !r.autoApply
		}
		state := "off"
		if r.autoApply {
			state = "on"
		}
		r.d.Success("Auto-apply: " + state)
	case "/tokens":
		r.d.TokenStatus(r.tracker.Snapshot())
	case "/session":
		r.d.Info("Session ID: " + r.session.ID)
	case "/history":
		r.handleHistory()
	case "/resume":
		r.handleResume(arg)
	case "/clear", "/fresh":
		r.session = store.NewSession(r.client.GetModel())
		r.tracker.Reset()
		r.queuedFiles = nil
		r.d.Success("Session cleared. Starting fresh.")
	case "/compact":
		r.session.Compact()
		r.d.Success("Session compacted.")
	case "/rewind":
		r.handleRewind(arg)
	case "/export":
		r.handleExport(arg)
	case "/quit", "/exit", "/q":
		r.quit()
	default:
		r.d.Error("Unknown command: " + cmd + ". Type /help.")
	}
}

func (r *repl) handleModel(arg string) {
	if arg == "" {
		r.d.Info("Current model: " + r.client.GetModel())
		return
	}
	r.client.SetModel(arg)
	r.tracker.SetModel(arg, r.cfg.Agent.ContextWindow)
	r.session.Model = arg
	r.d.Success("Switched to " + arg)
}

func (r *repl) handleFiles(arg string) {
	if arg == "" {
		if len(r.queuedFiles) > 0 {
			r.d.Info("Queued files: " + strings.Join(r.queuedFiles, ", "))
		} else {
			r.d.Info("No files queued. Usage: /files <path>")
		}
		return
	}
	paths := strings.Fields(arg)
	r.queuedFiles = append(r.queuedFiles, paths...)
	r.d.Success(fmt.Sprintf("Queued %d path(s) for the next message", len(paths)))
}

func (r *repl) handleHistory() {
	st, err := openStore(r.cfg, r.ws)
	if err != nil {
		r.d.Error(err.Error())
		return
	}
	defer st.Close()
	sessions, err := st.List(20)
	if err != nil {
		r.d.Error(err.Error())
		return
	}
	if len(sessions) == 0 {
		r.d.Info("No saved sessions.")
		return
	}
	for _, s := range sessions {
		date := s.UpdatedAt
		if len(date) > 19 {
			date = date[:19]
		}
		r.d.Info(fmt.Sprintf("%.12s...  %s  %d msgs  %s", s.ID, s.Model, s.MessageCount, date))
	}
}

func (r *repl) handleResume(arg string) {
	if arg == "" {
		r.d.Error("Usage: /resume <session_id>")
		return
	}
	st, err := openStore(r.cfg, r.ws)
	if err != nil {
		r.d.Error(err.Error())
		return
	}
	defer st.Close()
	sess, err := st.Load(arg)
	if err != nil {
		r.d.Error("Session not found: " + arg)
		return
	}
	r.session = sess
	if sess.Model != "" {
		r.client.SetModel(sess.Model)
		r.tracker.SetModel(sess.Model, r.cfg.Agent.ContextWindow)
	}
	r.d.Success(fmt.Sprintf("Resumed session %.12s... (%d messages)", sess.ID, len(sess.Messages)))
}

func (r *repl) handleRewind(arg string) {
	turns := 1
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			r.d.Error("Usage: /rewind [n]  (n = positive integer)")
			return
		}
		turns = n
	}
	remove := turns * 2 // each turn is one user + one assistant message
	if remove > len(r.session.Messages) {
		r.d.Error(fmt.Sprintf("Cannot rewind %d turn(s). Only %d available.", turns, len(r.session.Messages)/2))
		return
	}
	removed := r.session.Messages[len(r.session.Messages)-remove:]
	dropped := 0
	for _, m := range removed {
		dropped += m.Tokens
	}
	r.session.Messages = r.session.Messages[:len(r.session.Messages)-remove]
	r.tracker.SubtractConsumed(dropped, 0)
	r.d.Success(fmt.Sprintf("Rewound %d turn(s). Removed %d tokens.", turns, dropped))
}

func (r *repl) handleExport(arg string) {
	md := r.exportMarkdown()
	if md == "" {
		r.d.Info("No messages to export.")
		return
	}
	if arg != "" {
		if err := os.WriteFile(arg, []byte(md), 0644); err != nil {
			r.d.Error("Export failed: " + err.Error())
			return
		}
		r.d.Info("Session exported to " + arg)
		return
	}
	if err := clipboard.WriteAll(md); err != nil {
		r.d.Error("Clipboard not available. Specify a filename: /export chat.md")
		return
	}
	r.d.Info("Session copied to clipboard.")
}

func (r *repl) exportMarkdown() string {
	if len(r.session.Messages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("# graft Session Export\n")
	fmt.Fprintf(&b, "**Date**: %s\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "**Model**: %s\n", r.session.Model)
	fmt.Fprintf(&b, "**Messages**: %d\n\n---\n", len(r.session.Messages))
	for _, msg := range r.session.Messages {
		role := strings.ToUpper(msg.Role[:1]) + msg.Role[1:]
		fmt.Fprintf(&b, "\n## %s\n\n%s\n\n---\n", role, msg.Content)
	}
	return b.String()
}

func (r *repl) quit() {
	if r.running {
		r.running = false
	}
	if len(r.session.Messages) > 0 {
		saveSession(r.cfg, r.ws, r.session, r.d)
	}
	logging.Repl("Shell exit: session=%s", r.session.ID)
}

// replContext is the request context for interactive calls. The shell
// relies on the client's own timeout; Ctrl+C exits the process.
func replContext() context.Context {
	return context.Background()
}

// sendMessage handles a plain chat line: agent mode when armed,
// otherwise one send-parse-apply pass.
func (r *repl) sendMessage(text string) {
	mode := apply.ModeConfirm
	if r.autoApply {
		mode = apply.ModeAuto
	}

	if r.agentRounds > 0 {
		loop := agent.New(agent.Deps{
			Client:  r.client,
			Applier: r.engine,
			Tracker: r.tracker,
			Sink:    r.d,
			Bundler: r.bundler,
			Session: r.session,
		})
		files := r.queuedFiles
		r.queuedFiles = nil
		loop.Run(replContext(), text, agent.Options{
			MaxRounds:    r.agentRounds,
			Mode:         mode,
			SystemPrompt: prompt.System(r.cfg.AgentName),
			Files:        files,
		})
		r.agentRounds = 0
		return
	}

	message := text
	if len(r.queuedFiles) > 0 {
		if prefix := r.bundleContext(); prefix != "" {
			message = prefix + "\n" + text
		}
		r.queuedFiles = nil
	}

	r.session.AddMessage(store.Message{Role: "user", Content: text})

	reply, err := r.client.CompleteWithSystem(replContext(), prompt.System(r.cfg.AgentName), message)
	if err != nil {
		r.d.Error("Request failed: " + err.Error())
		return
	}
	r.d.Message(reply.Text, "assistant")

	edits := parse.Reply(reply.Text)
	if len(edits) > 0 {
		outcomes := r.engine.ApplyAll(edits, mode)
		applied, failed := 0, 0
		for _, out := range outcomes {
			if out.Success {
				applied++
			} else {
				failed++
				r.d.Error("Failed: " + out.Path + ": " + out.Error)
			}
		}
		if applied > 0 {
			r.d.Success(fmt.Sprintf("Applied %d edit(s)", applied))
		}
	}

	r.tracker.AddConsumed(reply.TotalTokens(), 0)
	r.session.AddMessage(store.Message{
		Role: "assistant", Content: reply.Text,
		Model: reply.Model, Tokens: reply.TotalTokens(),
	})

	r.d.TokenStatus(r.tracker.Snapshot())
	if msg, crossed := r.tracker.CheckThresholds(); crossed {
		r.d.Warning(msg)
	}
}

// bundleContext concatenates the queued files into prompt context.
func (r *repl) bundleContext() string {
	bundles, unmatched, err := r.bundler.Bundle(replContext(), r.queuedFiles, "")
	if err != nil {
		r.d.Error("Bundling failed: " + err.Error())
		return ""
	}
	if len(unmatched) > 0 {
		r.d.Warning("No files found for: " + strings.Join(unmatched, ", "))
	}
	var b strings.Builder
	for _, bd := range bundles {
		r.d.BundleSummary(bd.FileType, bd.FileCount, bd.EstimatedTokens)
		b.WriteString(bd.Content)
		b.WriteString("\n")
	}
	return b.String()
}
