package main

import (
	"io"
	"os"
	"path/filepath"

	"railctl/internal/binding"
	"railctl/internal/console"
	"railctl/internal/log"
	"railctl/internal/session"
	"railctl/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "console <resource> [key=value...]",
		Aliases: []string{"tui"},
		Short:   "Open the interactive console for a collection",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := binding.ParsePairs(args[1:])
			if err != nil {
				return err
			}

			// The UI owns the terminal; logs go to the configured file or nowhere.
			if a.cfg.Log.File != "" {
				log.Configure(log.WithFile(a.cfg.Log.File))
			} else {
				log.Configure(log.WithOutput(io.Discard))
			}

			_, c, err := a.open(args[0], console.WithDebounce(a.cfg.Debounce()))
			if err != nil {
				return err
			}
			defer c.Close()
			if len(values) > 0 {
				if err := c.SetFilterValues(values); err != nil {
					return err
				}
			}

			sess, err := a.session()
			if err != nil {
				return err
			}
			if a.cfg.Session.Watch && a.cfg.Session.TokenFile != "" {
				if w := watchToken(sess, a.cfg.Session.TokenFile); w != nil {
					defer w.Stop()
				}
			}

			m := tui.New(c, sess, a.cfg)
			defer m.Close()
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

// watchToken follows the token file so a login from another terminal
// revives an expired console. Failure only disables that.
func watchToken(sess *session.State, path string) *session.Watcher {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.LogWithError(err).Warn("cannot watch token file")
		return nil
	}
	w, err := session.NewWatcher(sess, path)
	if err != nil {
		log.LogWithError(err).Warn("cannot watch token file")
		return nil
	}
	if err := w.Start(); err != nil {
		log.LogWithError(err).Warn("cannot watch token file")
		return nil
	}
	return w
}
