package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"graft/internal/agent"
	"graft/internal/apply"
	"graft/internal/bundle"
	"graft/internal/config"
	"graft/internal/display"
	"graft/internal/llm"
	"graft/internal/prompt"
	"graft/internal/store"
	"graft/internal/tokens"

	"github.com/spf13/cobra"
)

var (
	runRounds  int
	runAuto    bool
	runDryRun  bool
	runFiles   []string
	runSkill   string
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run the agent loop for a single task",
	Long: `Sends the task to the model and applies the edits it replies with,
retrying failed edits with corrective feedback for up to --rounds rounds.

Examples:
  graft run "add error handling to fetch()" -f src/
  graft run "write tests for parser.py" -f parser.py --auto -r 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAgent,
}

func init() {
	runCmd.Flags().IntVarP(&runRounds, "rounds", "r", 0, "max agent rounds (default from config)")
	runCmd.Flags().BoolVar(&runAuto, "auto", false, "apply edits without confirmation")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "show changes without writing")
	runCmd.Flags().StringSliceVarP(&runFiles, "files", "f", nil, "files or directories to include as context")
	runCmd.Flags().StringVar(&runSkill, "skill", "", "skill to inject into the prompt")
}

func runAgent(cmd *cobra.Command, args []string) error {
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

	tracker := tokens.NewTracker(client.GetModel(), cfg.Agent.ContextWindow,
		cfg.Agent.WarningThreshold, cfg.Agent.CriticalThreshold)

	engine := apply.New(apply.Options{
		Root:            ws,
		BlockedPatterns: cfg.Workspace.BlockedWritePatterns,
		CreateBackups:   cfg.Agent.CreateBackups,
	}, d)

	sess := store.NewSession(client.GetModel())

	loop := agent.New(agent.Deps{
		Client:  client,
		Applier: engine,
		Tracker: tracker,
		Sink:    d,
		Bundler: bundle.New(cfg.Bundling, ws),
		Session: sess,
	})

	// SIGINT requests a cooperative stop at the next round boundary; a
	// second signal kills the process the usual way.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		d.Warning("Cancelling after the current round...")
		loop.Stop()
		signal.Stop(sigCh)
	}()

	skillPrompt := ""
	if runSkill != "" {
		reg := prompt.NewSkillRegistry(ws)
		body, ok := reg.LoadBody(runSkill, cfg.AgentName)
		if !ok {
			return fmt.Errorf("unknown skill: %s", runSkill)
		}
		skillPrompt = body
	}

	opts := agent.Options{
		MaxRounds:    cfg.Agent.MaxRounds,
		Mode:         applyMode(cfg),
		SystemPrompt: prompt.System(cfg.AgentName),
		SkillPrompt:  skillPrompt,
		Files:        runFiles,
	}
	if runRounds > 0 {
		opts.MaxRounds = runRounds
	}

	result := loop.Run(cmd.Context(), strings.Join(args, " "), opts)

	saveSession(cfg, ws, sess, d)

	if result.StopReason == agent.StopUserCancelled {
		return context.Canceled
	}
	return nil
}

// applyMode maps the flags and config onto an apply mode. Dry-run beats
// everything; --auto or the config's auto_apply skips confirmation.
func applyMode(cfg *config.Config) apply.Mode {
	if runDryRun {
		return apply.ModeDryRun
	}
	if runAuto || cfg.Agent.AutoApply {
		return apply.ModeAuto
	}
	return apply.ModeConfirm
}

// saveSession persists the conversation, pruning old sessions. Failures
// are reported, never fatal.
func saveSession(cfg *config.Config, ws string, sess *store.Session, d *display.Display) {
	if len(sess.Messages) == 0 {
		return
	}
	st, err := openStore(cfg, ws)
	if err != nil {
		d.Warning("Session not saved: " + err.Error())
		return
	}
	defer st.Close()
	if err := st.Save(sess); err != nil {
		d.Warning("Session not saved: " + err.Error())
		return
	}
	st.Prune(cfg.Sessions.MaxSaved)
	d.Info("Session saved: " + sess.ID)
}
