package main

import (
	"os"
	"path/filepath"

	"modeltool/internal/errors"
	"modeltool/internal/session"
	"modeltool/pkg/types"

	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a model file to the native format",
		Long: `Import a model file and write it next to the source with the .lmdl
extension, or to --out. A native file is copied when --out is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return errors.NewFileError("cannot convert", path, errors.InvalidPath, err)
			}
			if info.IsDir() {
				return errors.NewFileError("cannot convert a directory, use convert-all", path, errors.InvalidPath, nil)
			}

			s, err := a.newSession(session.WithoutWatcher(), session.WithMetricsAddr(""))
			if err != nil {
				return err
			}
			defer s.Close()

			orch := s.Orchestrator()
			if orch.Classifier().Classify(info.Name()) == types.EngineNative && out == "" {
				a.out.Info("%s is already in the native format", path)
				return nil
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if err := orch.Open(ctx, path); err != nil {
				a.printLog(cmd, s)
				return err
			}
			if err := orch.Write(ctx, out); err != nil {
				a.printLog(cmd, s)
				return err
			}

			dest := out
			if dest == "" {
				dest = types.NativePath(path)
			}
			a.out.Success("Converted %s -> %s", filepath.Base(path), dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default: source path with .lmdl)")
	return cmd
}

func newConvertAllCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert-all [dir]",
		Short: "Convert every importable file of a directory",
		Long: `Convert every importable file of the directory in listing order. A file that
fails is reported and the batch goes on; interrupting stops it after the
file in flight.`,
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
			if err := orch.ChangeDirectory(ctx, dir); err != nil {
				a.printLog(cmd, s)
				return err
			}

			res, err := orch.ConvertAll(ctx)
			a.printBatch(res)
			if err != nil {
				return err
			}
			if n := res.Failed(); n > 0 {
				a.printLog(cmd, s)
				return errors.Newf("%d of %d files failed to convert", n, len(res.Items))
			}
			return nil
		},
	}
	return cmd
}

func (a *app) printBatch(res types.BatchResult) {
	if len(res.Items) == 0 && !res.Cancelled {
		a.out.Info("No importable files in %s", res.Directory)
		return
	}
	for _, item := range res.Items {
		if item.Converted {
			a.out.Success("  ok    %s -> %s", filepath.Base(item.SourcePath), filepath.Base(item.DestinationPath))
		} else {
			a.out.Error("  fail  %s: %v", filepath.Base(item.SourcePath), item.Error)
		}
	}
	if res.Cancelled {
		a.out.Warning("Cancelled after %d files", len(res.Items))
	}
	a.out.Info("Converted %d of %d files", res.Succeeded(), len(res.Items))
}
