package main

import (
	"fmt"

	"modeltool/internal/session"
	"modeltool/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var modelsOnly bool

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List a directory with each file's classification",
		Long: `List the directory the way the browser shows it: directories first, then
files, each tagged as native, importable or other.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession(session.WithoutWatcher(), session.WithMetricsAddr(""))
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
			orch.SetShowOnlyImportable(modelsOnly)
			if err := orch.ChangeDirectory(ctx, dir); err != nil {
				a.printLog(cmd, s)
				return err
			}

			entries := orch.Entries()
			a.out.Info("Directory: %s", dir)
			if len(entries) == 0 {
				a.out.Plain("  (no files)")
				return nil
			}
			for _, e := range entries {
				a.out.Plain("  %s", formatEntry(e))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&modelsOnly, "models", "m", false, "show only native and importable files")
	return cmd
}

func formatEntry(e types.FileEntry) string {
	if e.IsDir {
		return fmt.Sprintf("%-32s dir", e.Name+"/")
	}
	return fmt.Sprintf("%-32s %-10s %s", e.Name, classLabel(e.Classification), humanize.Bytes(uint64(e.Size)))
}

func classLabel(c types.Classification) string {
	switch c {
	case types.EngineNative:
		return "native"
	case types.Importable:
		return "importable"
	default:
		return "other"
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
