// Package agent drives the multi-round edit loop: send a prompt, parse
// the reply into edit instructions, apply them, and feed the outcome back
// into the next round until a stop condition is met.
//
// The loop is single-threaded and synchronous. The only suspension point
// is the blocking model call; cancellation is cooperative and checked at
// round boundaries, so an in-flight request or file write is never
// interrupted mid-operation.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"graft/internal/apply"
	"graft/internal/bundle"
	"graft/internal/llm"
	"graft/internal/logging"
	"graft/internal/parse"
	"graft/internal/prompt"
	"graft/internal/store"
	"graft/internal/tokens"
)

// StopReason explains why a run terminated.
type StopReason string

const (
	StopUserCancelled StopReason = "user_cancelled"
	StopTokenLimit    StopReason = "token_limit"
	StopNoActions     StopReason = "no_actions"
	StopMaxRounds     StopReason = "max_rounds"
)

// RoundOutcome records one send-parse-apply cycle. Immutable once built.
type RoundOutcome struct {
	Round          int
	Response       string
	Applied        []string
	Failed         []apply.Outcome
	TokensConsumed int
	HadActions     bool
}

// RunOutcome aggregates a full run. AppliedFiles is deduplicated in
// first-touch order.
type RunOutcome struct {
	Rounds       []RoundOutcome
	AppliedFiles []string
	TotalTokens  int
	TotalFailed  int
	StopReason   StopReason
}

// Applier applies parsed edits. *apply.Engine satisfies it.
type Applier interface {
	ApplyAll(edits []parse.Edit, mode apply.Mode) []apply.Outcome
}

// Sink receives user-facing progress output from the loop.
type Sink interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	Message(content, role string)
	TokenStatus(u tokens.Usage)
	BundleSummary(fileType string, count, estimatedTokens int)
}

// Uploader pushes file bundles to a remote session before the loop
// starts. Optional; without one, bundle content travels inside the first
// prompt instead.
type Uploader interface {
	UploadBundles(ctx context.Context, sessionID string, bundles []bundle.FileBundle) error
}

// Deps are the collaborators a Loop drives. Client, Applier and Sink are
// required; the rest are optional.
type Deps struct {
	Client   llm.Client
	Applier  Applier
	Tracker  *tokens.Tracker
	Sink     Sink
	Bundler  *bundle.Bundler
	Uploader Uploader
	Session  *store.Session
}

// Options configures one run.
type Options struct {
	MaxRounds    int
	Mode         apply.Mode
	SystemPrompt string
	SkillPrompt  string
	Files        []string
}

// Loop is the round orchestrator. One Loop may serve several runs, but
// never concurrently.
type Loop struct {
	client   llm.Client
	applier  Applier
	tracker  *tokens.Tracker
	sink     Sink
	bundler  *bundle.Bundler
	uploader Uploader
	session  *store.Session
	stopped  atomic.Bool
}

// New builds a Loop from its collaborators.
func New(deps Deps) *Loop {
	return &Loop{
		client:   deps.Client,
		applier:  deps.Applier,
		tracker:  deps.Tracker,
		sink:     deps.Sink,
		bundler:  deps.Bundler,
		uploader: deps.Uploader,
		session:  deps.Session,
	}
}

// Stop requests cancellation. The loop honors it at the next round
// boundary; an in-flight round completes.
func (l *Loop) Stop() {
	l.stopped.Store(true)
}

// cancelled reports whether either cancellation token has fired.
func (l *Loop) cancelled(ctx context.Context) bool {
	return l.stopped.Load() || ctx.Err() != nil
}

// Run executes up to opts.MaxRounds rounds for the given task and always
// returns a completed RunOutcome; no failure inside a run is fatal.
func (l *Loop) Run(ctx context.Context, task string, opts Options) RunOutcome {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	if opts.Mode == "" {
		opts.Mode = apply.ModeConfirm
	}

	result := RunOutcome{}
	seen := make(map[string]bool)

	logging.Agent("Run start: maxRounds=%d mode=%s files=%d", opts.MaxRounds, opts.Mode, len(opts.Files))

	contextPrefix := l.uploadFiles(ctx, opts.Files)
	message := prompt.Assemble(opts.SystemPrompt, opts.SkillPrompt, contextPrefix+task)

	for round := 1; round <= opts.MaxRounds; round++ {
		if l.cancelled(ctx) {
			result.StopReason = StopUserCancelled
			break
		}
		if l.tracker != nil && l.tracker.Status() == tokens.StatusCritical {
			result.StopReason = StopTokenLimit
			l.sink.Warning("Token limit approaching (>95%). Stopping agent.")
			break
		}

		l.sink.Info(fmt.Sprintf("--- Agent Round %d/%d ---", round, opts.MaxRounds))

		rr := l.runRound(ctx, round, message, opts.Mode)
		result.Rounds = append(result.Rounds, rr)
		result.TotalTokens += rr.TokensConsumed
		result.TotalFailed += len(rr.Failed)
		for _, path := range rr.Applied {
			if !seen[path] {
				seen[path] = true
				result.AppliedFiles = append(result.AppliedFiles, path)
			}
		}

		if !rr.HadActions {
			result.StopReason = StopNoActions
			break
		}
		if round >= opts.MaxRounds {
			result.StopReason = StopMaxRounds
			break
		}

		message = Feedback(rr)
	}

	l.sink.Info(fmt.Sprintf("Agent completed: %d rounds, %d files modified",
		len(result.Rounds), len(result.AppliedFiles)))
	if result.TotalFailed > 0 {
		l.sink.Warning(fmt.Sprintf("%d edit(s) failed", result.TotalFailed))
	}
	l.sink.Info("Stop reason: " + string(result.StopReason))

	logging.Agent("Run done: rounds=%d files=%d failed=%d tokens=%d stop=%s",
		len(result.Rounds), len(result.AppliedFiles), result.TotalFailed,
		result.TotalTokens, result.StopReason)
	logging.Audit().RunEnd(len(result.Rounds), string(result.StopReason), result.TotalTokens)

	return result
}

// runRound executes a single round. A transport failure still produces a
// recorded round with no response and no actions, so the loop proceeds
// to its stop-condition check rather than aborting the run.
func (l *Loop) runRound(ctx context.Context, round int, message string, mode apply.Mode) RoundOutcome {
	rr := RoundOutcome{Round: round}
	timer := logging.StartTimer(logging.CategoryAgent, fmt.Sprintf("Round %d", round))
	defer timer.Stop()

	if l.session != nil {
		l.session.AddMessage(store.Message{Role: "user", Content: message})
	}

	reply, err := l.client.Complete(ctx, message)
	if err != nil {
		l.sink.Error("Request failed: " + err.Error())
		logging.AgentError("Round %d request failed: %v", round, err)
		return rr
	}

	rr.Response = reply.Text
	rr.TokensConsumed = reply.TotalTokens()
	l.sink.Message(reply.Text, "assistant")

	if l.tracker != nil {
		l.tracker.AddConsumed(rr.TokensConsumed, 0)
	}
	if l.session != nil {
		l.session.AddMessage(store.Message{
			Role:    "assistant",
			Content: reply.Text,
			Model:   reply.Model,
			Tokens:  rr.TokensConsumed,
		})
	}

	edits := parse.Reply(reply.Text)
	if len(edits) > 0 {
		rr.HadActions = true
		outcomes := l.applier.ApplyAll(edits, mode)
		for _, out := range outcomes {
			if out.Success {
				rr.Applied = append(rr.Applied, out.Path)
			} else {
				rr.Failed = append(rr.Failed, out)
			}
		}
	}

	if l.tracker != nil {
		l.sink.TokenStatus(l.tracker.Snapshot())
	}

	logging.Agent("Round %d: actions=%v applied=%d failed=%d tokens=%d",
		round, rr.HadActions, len(rr.Applied), len(rr.Failed), rr.TokensConsumed)
	logging.Audit().RoundEnd(round, len(rr.Applied), len(rr.Failed), rr.TokensConsumed)
	return rr
}

// uploadFiles bundles the queued files and hands them to the uploader.
// Without an uploader the bundle text is returned as a context prefix for
// the first prompt, since chat-completions providers have no server-side
// session to upload into. Upload errors are reported and swallowed.
func (l *Loop) uploadFiles(ctx context.Context, files []string) string {
	if len(files) == 0 || l.bundler == nil {
		return ""
	}

	bundles, unmatched, err := l.bundler.Bundle(ctx, files, "")
	if err != nil {
		l.sink.Error("Bundling failed: " + err.Error())
		return ""
	}
	if len(unmatched) > 0 {
		l.sink.Warning("No files found for: " + joinPaths(unmatched))
	}
	if len(bundles) == 0 {
		return ""
	}

	for _, b := range bundles {
		l.sink.BundleSummary(b.FileType, b.FileCount, b.EstimatedTokens)
	}

	if l.uploader != nil {
		sessionID := ""
		if l.session != nil {
			sessionID = l.session.ID
		}
		if err := l.uploader.UploadBundles(ctx, sessionID, bundles); err != nil {
			l.sink.Error("Upload failed: " + err.Error())
		} else {
			l.sink.Success("Files uploaded")
		}
		return ""
	}

	var prefix strings.Builder
	for _, b := range bundles {
		prefix.WriteString(b.Content)
		prefix.WriteString("\n")
	}
	prefix.WriteString("\n")
	return prefix.String()
}

func joinPaths(paths []string) string {
	return strings.Join(paths, ", ")
}
