package main

import (
	"fmt"
	"path/filepath"

	"graft/internal/config"
	"graft/internal/store"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, ws)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.List(50)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No saved sessions.")
			return nil
		}
		for _, s := range sessions {
			date := s.UpdatedAt
			if len(date) > 19 {
				date = date[:19]
			}
			fmt.Printf("%-38s %-12s %4d msgs  %s\n", s.ID, s.Model, s.MessageCount, date)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a saved session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, ws)
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := st.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Session %s (%s, %d messages)\n", sess.ID, sess.Model, len(sess.Messages))
		for _, msg := range sess.Messages {
			fmt.Printf("\n[%s]\n%s\n", msg.Role, msg.Content)
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, ws)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted:", args[0])
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ws, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg, ws)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d session(s).\n", n)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

// openStore opens the session database configured for the workspace and
// runs the one-time JSON migration from the legacy session directory.
func openStore(cfg *config.Config, ws string) (*store.Store, error) {
	dbPath := cfg.Sessions.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(ws, dbPath)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	jsonDir := cfg.Sessions.Dir
	if !filepath.IsAbs(jsonDir) {
		jsonDir = filepath.Join(ws, jsonDir)
	}
	st.MigrateFromJSON(jsonDir)

	return st, nil
}
