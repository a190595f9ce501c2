package main

import (
	"context"
	"os"

	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/session"
	"modeltool/pkg/types"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(a *app) *cobra.Command {
	var convert bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and print its listing as it changes",
		Long: `Watch a directory for changes and print the refreshed listing after each
burst of changes. With --convert, importable files without an up to date
.lmdl sibling are converted as they appear.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Watch.Enabled {
				a.out.Warning("watch.enabled is false in the configuration; watching anyway")
				a.cfg.Watch.Enabled = true
			}
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

			orch := s.Orchestrator()
			if err := orch.ChangeDirectory(ctx, dir); err != nil {
				a.printLog(cmd, s)
				return err
			}

			a.out.Info("Watching %s (Ctrl+C to stop)", dir)
			if addr := s.MetricsAddr(); addr != "" {
				a.out.Info("Metrics on http://%s/metrics", addr)
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return s.Run(ctx)
			})
			g.Go(func() error {
				return a.followListing(ctx, s, convert)
			})
			if err := g.Wait(); err != nil && !errors.IsCancelled(err) {
				return err
			}
			a.out.Info("Stopped watching %s", dir)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&convert, "convert", "c", false, "convert new or changed importable files")
	return cmd
}

// followListing prints every published listing until ctx ends.
func (a *app) followListing(ctx context.Context, s *session.Session, convert bool) error {
	orch := s.Orchestrator()
	listing, unsubscribe := orch.Listing().Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case entries, ok := <-listing:
			if !ok {
				return nil
			}
			a.out.Info("%s: %d entries", orch.WorkingDir().Get(), len(entries))
			for _, e := range entries {
				a.out.Plain("  %s", formatEntry(e))
			}
			if !convert || !needsConversion(entries) {
				continue
			}
			res, err := orch.ConvertAll(ctx)
			switch {
			case errors.IsBusy(err):
				log.Debug("Skipping conversion while another operation runs")
			case errors.IsCancelled(err):
				return nil
			default:
				if err != nil {
					log.LogWithError(err).Warn("Conversion stopped")
				}
				a.printBatch(res)
			}
		}
	}
}

// needsConversion reports whether some importable entry has no native
// sibling at least as new as itself.
func needsConversion(entries []types.FileEntry) bool {
	for _, e := range entries {
		if e.IsDir || !e.IsImportable() {
			continue
		}
		info, err := os.Stat(types.NativePath(e.Path))
		if err != nil || info.ModTime().Before(e.ModTime) {
			return true
		}
	}
	return false
}
