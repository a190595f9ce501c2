package main

import (
	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTUICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [dir]",
		Short: "Browse and convert models in the terminal UI",
		Long: `Start the interactive browser. Navigate with the arrow keys, open a file
with enter to import it, press w to write it as .lmdl and ? for every key.`,
		Args: cobra.MaximumNArgs(1),
		// The UI owns the terminal; logs go to --log-file only.
		Annotations: map[string]string{ownsTerminal: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.Close()

			dir, err := s.StartDir(firstArg(args))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			runErr := make(chan error, 1)
			go func() {
				runErr <- s.Run(ctx)
			}()

			m := tui.New(ctx, s.Orchestrator(), a.cfg, dir, version)
			defer m.Close()

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			cancel()
			if sessionErr := <-runErr; sessionErr != nil {
				log.LogWithError(sessionErr).Warn("Background work stopped with an error")
			}
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "terminal UI failed")
			}
			return nil
		},
	}
	return cmd
}
