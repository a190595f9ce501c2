package orchestrator

import (
	"context"
	"path/filepath"

	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/metrics"
	"modeltool/pkg/types"
)

// ConvertAll imports every importable file in the working directory, in
// listing order, and writes each one next to its source with the native
// extension. A failed file is logged and counted and the batch moves on.
// The watcher is paused for the duration and one refresh follows.
//
// The returned error is non-nil only when the batch could not start or was
// cancelled; per-file failures are reported in the result.
func (o *Orchestrator) ConvertAll(ctx context.Context) (types.BatchResult, error) {
	var dir string
	op, err := o.admit(ctx, "convert-all", func() error {
		if o.cwd == "" {
			return errors.NewKindError("no working directory", errors.InvalidOperation, nil)
		}
		dir = o.cwd
		o.batching = true
		return nil
	})
	if err != nil {
		return types.BatchResult{}, err
	}

	result := types.BatchResult{Directory: dir}
	if o.watcher != nil {
		o.watcher.Pause()
	}
	defer func() {
		if o.watcher != nil {
			o.watcher.Resume()
		}
		o.mu.Lock()
		o.batching = false
		o.refreshPending = true
		o.mu.Unlock()
		o.record(logsink.Info, "Converted %d of %d files in %s", result.Succeeded(), len(result.Items), dir)
		o.complete(op, types.Ready, nil)
	}()

	entries, err := o.classifier.List(dir)
	if err != nil {
		err = errors.NewFileError("cannot list directory", dir, errors.IoError, err)
		o.record(logsink.Error, "convert-all failed: %v", err)
		return result, err
	}
	var targets []types.FileEntry
	for _, e := range entries {
		if e.IsImportable() {
			targets = append(targets, e)
		}
	}
	op.logger.With(log.F("directory", dir), log.F("files", len(targets))).Info("Batch conversion started")
	o.record(logsink.Info, "Converting %d files in %s", len(targets), dir)

	for i, entry := range targets {
		if err := op.ctx.Err(); err != nil {
			result.Cancelled = true
			break
		}
		item := o.convertOne(op, i, entry)
		result.Items = append(result.Items, item)
		metrics.RecordBatchItem(item.Converted)
		o.publishLogView()

		if item.Error != nil && errors.IsCancelled(item.Error) {
			result.Cancelled = true
			break
		}
	}

	if result.Cancelled {
		o.record(logsink.Warning, "Batch conversion cancelled")
		return result, errors.NewFileError("batch cancelled", dir, errors.Cancelled, op.ctx.Err())
	}
	return result, nil
}

func (o *Orchestrator) convertOne(op *operation, index int, entry types.FileEntry) types.ConvertResult {
	item := types.ConvertResult{
		SourcePath:      entry.Path,
		DestinationPath: types.NativePath(entry.Path),
	}

	err := o.importFile(op, entry.Path)
	if err == nil {
		o.setState(types.ImportComplete)
		err = o.writeFile(op, item.DestinationPath)
	}
	o.drainEngine()

	switch {
	case err == nil:
		item.Converted = true
		o.setState(types.WriteComplete)
	case errors.IsCancelled(err):
		item.Error = err
		o.record(logsink.Warning, "%s cancelled", filepath.Base(entry.Path))
	default:
		berr := errors.NewBatchError(entry.Path, index, err)
		item.Error = berr
		o.record(logsink.Error, "%v", berr)
		op.logger.WithError(berr).Warn("Batch item failed")
		o.setState(types.Failed)
	}
	return item
}
