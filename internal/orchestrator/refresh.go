package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/metrics"
	"modeltool/internal/watch"
)

// Run consumes watcher events until ctx is done or the event stream closes.
// A burst of events within the debounce interval produces one refresh; a
// rename of the working directory retargets it first.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.watcher == nil {
		<-ctx.Done()
		return nil
	}
	events := o.watcher.Events()

	var timer *time.Timer
	var fire <-chan time.Time
	retarget := ""
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			metrics.RecordWatchEvent(ev.Op.String())
			log.LogWithFields(log.F("op", ev.Op.String()), log.F("path", ev.Path)).Debug("Directory change")

			cwd := o.workingDir.Get()
			if retarget != "" {
				cwd = retarget
			}
			if ev.Op == watch.Renamed && ev.OldPath == cwd {
				retarget = ev.Path
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(o.debounce)
			fire = timer.C

		case <-fire:
			timer, fire = nil, nil
			if retarget != "" {
				o.retarget(retarget)
				retarget = ""
			}
			_ = o.Refresh()
		}
	}
}

// retarget follows a rename of the working directory.
func (o *Orchestrator) retarget(dir string) {
	o.mu.Lock()
	old := o.cwd
	o.cwd = dir
	if rel, ok := within(old, o.modelPath); ok {
		o.modelPath = filepath.Join(dir, rel)
	}
	o.mu.Unlock()

	if o.watcher != nil {
		if err := o.watcher.SetPath(dir); err != nil {
			o.record(logsink.Warning, "Not watching %s: %v", dir, err)
		}
	}
	o.record(logsink.Info, "Working directory renamed to %s", dir)
	o.publishLogView()
	o.workingDir.Publish(dir)
}

func within(dir, path string) (string, bool) {
	if dir == "" || path == "" {
		return "", false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
