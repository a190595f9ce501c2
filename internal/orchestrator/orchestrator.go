// Package orchestrator drives model import and export. It owns the operation
// state machine, admits one operation at a time, aggregates progress,
// refreshes the directory listing when the watched directory changes, and
// publishes every observable value to subscribers.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modeltool/internal/engine"
	"modeltool/internal/errors"
	"modeltool/internal/fileio"
	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/metrics"
	"modeltool/internal/model"
	"modeltool/internal/watch"
	"modeltool/pkg/types"

	"github.com/google/uuid"
)

// DefaultDebounce coalesces bursts of directory change events.
const DefaultDebounce = 250 * time.Millisecond

// Engine is the conversion capability as seen by the orchestrator.
type Engine interface {
	Import(data []byte, hint string) (engine.Handle, error)
	Export(h engine.Handle) ([]byte, error)
	Describe(h engine.Handle, version int) (*model.Description, error)
	Release(h engine.Handle)
	DrainLogs() []logsink.Record
}

var _ Engine = (*engine.Adapter)(nil)

// Watcher delivers change events for the working directory.
type Watcher interface {
	Events() <-chan watch.ChangeEvent
	SetPath(dir string) error
	Pause()
	Resume()
}

var _ Watcher = (*watch.Watcher)(nil)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWatcher enables directory change detection.
func WithWatcher(w Watcher) Option {
	return func(o *Orchestrator) { o.watcher = w }
}

// WithClassifier sets the importable extension allow-list.
func WithClassifier(c *types.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithChunkSize sets the file transfer unit.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) { o.files = fileio.New(n) }
}

// WithDebounce sets the change-event coalescing delay.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithFileVersion sets the version tag stamped on model descriptions.
func WithFileVersion(v int) Option {
	return func(o *Orchestrator) { o.fileVersion = v }
}

// WithVerbosity sets the initial log view threshold.
func WithVerbosity(s logsink.Severity) Option {
	return func(o *Orchestrator) { o.verbosity = s }
}

// WithSink shares a log sink with other components.
func WithSink(s *logsink.Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

// operation is the bookkeeping for one admitted operation.
type operation struct {
	id      string
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time
	logger  *log.Logger
}

// Orchestrator coordinates the file gateway, the engine, the model
// repository and the directory watcher.
type Orchestrator struct {
	mu sync.Mutex

	engine     Engine
	files      *fileio.Gateway
	repo       *model.Repository
	sink       *logsink.Sink
	classifier *types.Classifier
	watcher    Watcher

	debounce    time.Duration
	fileVersion int
	verbosity   logsink.Severity

	// guarded by mu
	op             *operation
	batching       bool
	progress       types.Progress
	cwd            string
	entries        []types.FileEntry
	onlyImportable bool
	handle         engine.Handle
	modelPath      string
	nativeData     []byte
	selected       int
	refreshPending bool

	state      *Observable[types.OperationState]
	progressOb *Observable[types.Progress]
	listing    *Observable[[]types.FileEntry]
	model      *Observable[*model.Description]
	logView    *Observable[[]logsink.Record]
	workingDir *Observable[string]
}

// New creates an orchestrator in state Idle.
func New(eng Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:      eng,
		files:       fileio.New(fileio.DefaultChunkSize),
		repo:        model.NewRepository(),
		sink:        logsink.New(),
		classifier:  types.MustClassifier(nil),
		debounce:    DefaultDebounce,
		fileVersion: 200,
		verbosity:   logsink.Info,
		handle:      engine.InvalidHandle,

		state:      NewObservable(types.Idle),
		progressOb: NewObservable(types.ProgressStart),
		listing:    NewObservable[[]types.FileEntry](nil),
		model:      NewObservable[*model.Description](nil),
		logView:    NewObservable[[]logsink.Record](nil),
		workingDir: NewObservable(""),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State is the current operation state.
func (o *Orchestrator) State() *Observable[types.OperationState] { return o.state }

// Progress is the running progress of the operation in flight.
func (o *Orchestrator) Progress() *Observable[types.Progress] { return o.progressOb }

// Listing is the working directory listing, filtered by SetShowOnlyImportable.
func (o *Orchestrator) Listing() *Observable[[]types.FileEntry] { return o.listing }

// Model is the current model description, nil when none is loaded.
func (o *Orchestrator) Model() *Observable[*model.Description] { return o.model }

// LogView is the log filtered at the current verbosity.
func (o *Orchestrator) LogView() *Observable[[]logsink.Record] { return o.logView }

// WorkingDir is the directory being browsed.
func (o *Orchestrator) WorkingDir() *Observable[string] { return o.workingDir }

// Repository returns the model repository.
func (o *Orchestrator) Repository() *model.Repository { return o.repo }

// Sink returns the log sink.
func (o *Orchestrator) Sink() *logsink.Sink { return o.sink }

// Classifier returns the importable allow-list classifier.
func (o *Orchestrator) Classifier() *types.Classifier { return o.classifier }

// Busy reports whether an operation or batch is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busyLocked()
}

func (o *Orchestrator) busyLocked() bool {
	return o.batching || o.op != nil || o.state.Get().InFlight()
}

// admit reserves the orchestrator for one operation derived from parent.
func (o *Orchestrator) admit(parent context.Context, name string, check func() error) (*operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busyLocked() {
		return nil, errors.ErrBusy
	}
	if check != nil {
		if err := check(); err != nil {
			return nil, err
		}
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	o.op = &operation{
		id:      id,
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
		logger:  log.LogWithFields(log.F("op_id", id), log.F("operation", name)),
	}
	return o.op, nil
}

// enter moves into an in-flight state and resets progress.
func (o *Orchestrator) enter(state types.OperationState) {
	o.mu.Lock()
	o.progress = types.ProgressStart
	o.mu.Unlock()

	o.setState(state)
	if state.Transferring() {
		o.progressOb.Publish(types.ProgressStart)
	}
}

func (o *Orchestrator) setState(state types.OperationState) {
	o.state.Publish(state)
	metrics.SetState(int(state))
}

func (o *Orchestrator) addProgress(delta float64) {
	o.mu.Lock()
	o.progress = o.progress.Add(delta)
	p := o.progress
	o.mu.Unlock()
	o.progressOb.Publish(p)
}

// complete ends op: drains engine logs, records err, publishes the log view
// and then the terminal state, and runs any deferred refresh.
func (o *Orchestrator) complete(op *operation, terminal types.OperationState, err error) {
	o.drainEngine()
	if err != nil {
		o.recordFailure(op, err)
	}
	o.publishLogView()

	o.mu.Lock()
	op.cancel()
	if o.op == op {
		o.op = nil
	}
	o.mu.Unlock()

	o.setState(terminal)
	metrics.RecordOperation(op.name, time.Since(op.started), err == nil)
	op.logger.With(log.F("state", terminal.String()), log.F("duration", time.Since(op.started).String())).Debug("Operation finished")

	o.runDeferredRefresh()
}

func (o *Orchestrator) recordFailure(op *operation, err error) {
	sev := logsink.Error
	if errors.IsCancelled(err) {
		sev = logsink.Warning
	}
	o.record(sev, "%s failed: %v", op.name, err)
	op.logger.WithError(err).Warn("Operation failed")
}

// record appends to the sink and mirrors the line to the application log.
func (o *Orchestrator) record(sev logsink.Severity, format string, args ...interface{}) {
	mirror("orchestrator", o.sink.Add(sev, format, args...))
}

func (o *Orchestrator) drainEngine() {
	for _, r := range o.sink.DrainFrom(o.engine) {
		mirror("engine", r)
	}
}

// mirror copies a sink record to the application log, tagged with where it
// came from.
func mirror(source string, r logsink.Record) {
	l := log.LogWithFields(log.F("source", source), log.F("severity", r.Severity.String()))
	switch r.Severity {
	case logsink.Error:
		l.Error(r.Text)
	case logsink.Warning:
		l.Warn(r.Text)
	case logsink.Info:
		l.Info(r.Text)
	case logsink.Debug, logsink.Verbose:
		l.Debug(r.Text)
	}
}

func (o *Orchestrator) publishLogView() {
	o.mu.Lock()
	v := o.verbosity
	o.mu.Unlock()
	o.logView.Publish(o.sink.Filtered(v))
}

// Verbosity returns the log view threshold.
func (o *Orchestrator) Verbosity() logsink.Severity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verbosity
}

// SetVerbosity changes the log view threshold and republishes the view.
func (o *Orchestrator) SetVerbosity(s logsink.Severity) {
	o.mu.Lock()
	o.verbosity = s
	o.mu.Unlock()
	o.publishLogView()
}

// ClearLog drops every log record.
func (o *Orchestrator) ClearLog() {
	o.sink.Clear()
	o.publishLogView()
}

// Cancel cancels the operation in flight, if any. A batch stops before its
// next file.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.op == nil {
		return false
	}
	o.op.cancel()
	o.op.logger.Info("Cancellation requested")
	return true
}

// Go runs fn on its own goroutine and delivers its result. The terminal UI
// runs its commands through it; other callers may block on the channel or
// select on it together with their own events.
func (o *Orchestrator) Go(ctx context.Context, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
		close(done)
	}()
	return done
}

// Open acts on the entry at path: a directory is navigated into, a native
// file is read and kept for writing, and anything else is imported.
func (o *Orchestrator) Open(ctx context.Context, path string) error {
	if o.Busy() {
		return errors.ErrBusy
	}
	if err := fileio.ValidatePath(path); err != nil {
		o.rejectPath("open", err)
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		err = errors.NewFileError("cannot open entry", path, errors.InvalidPath, err)
		o.rejectPath("open", err)
		return err
	}
	if info.IsDir() {
		return o.ChangeDirectory(ctx, path)
	}
	if o.classifier.Classify(info.Name()) == types.EngineNative {
		return o.openNative(ctx, path)
	}
	return o.Import(ctx, path)
}

func (o *Orchestrator) rejectPath(what string, err error) {
	o.record(logsink.Error, "%s rejected: %v", what, err)
	o.publishLogView()
	log.LogWithError(err).Warn("Request rejected")
}

func (o *Orchestrator) openNative(ctx context.Context, path string) error {
	op, err := o.admit(ctx, "read", nil)
	if err != nil {
		return err
	}
	op.logger.With(log.F("path", path)).Info("Reading native model")
	o.enter(types.Reading)

	data, err := o.files.ReadAll(op.ctx, path, o.addProgress)
	if err != nil {
		o.complete(op, types.Failed, err)
		return err
	}
	metrics.RecordRead(len(data))

	o.mu.Lock()
	old := o.handle
	o.handle = engine.InvalidHandle
	o.modelPath = path
	o.nativeData = data
	o.selected = 0
	o.mu.Unlock()

	o.engine.Release(old)
	o.repo.Clear()
	o.model.Publish(nil)
	o.record(logsink.Info, "Read %d bytes from %s", len(data), filepath.Base(path))
	o.complete(op, types.ReadComplete, nil)
	return nil
}

// Import reads the file at path and loads it through the engine. On success
// the new model replaces the current one; on failure or cancellation the
// current model is left as it was.
func (o *Orchestrator) Import(ctx context.Context, path string) error {
	if err := fileio.ValidatePath(path); err != nil {
		if o.Busy() {
			return errors.ErrBusy
		}
		o.rejectPath("import", err)
		return err
	}
	op, err := o.admit(ctx, "import", nil)
	if err != nil {
		return err
	}
	err = o.importFile(op, path)
	if err != nil {
		o.complete(op, types.Failed, err)
		return err
	}
	o.complete(op, types.ImportComplete, nil)
	return nil
}

func (o *Orchestrator) importFile(op *operation, path string) error {
	op.logger.With(log.F("path", path)).Info("Importing model")
	o.enter(types.Importing)

	data, err := o.files.ReadAll(op.ctx, path, o.addProgress)
	if err != nil {
		return err
	}
	metrics.RecordRead(len(data))

	h, err := o.engine.Import(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return errors.NewFileError("import failed", path, errors.ImportFailure, err)
	}
	// The engine call cannot be interrupted; honor a cancel that arrived
	// while it ran.
	if err := op.ctx.Err(); err != nil {
		o.engine.Release(h)
		return errors.NewFileError("import cancelled", path, errors.Cancelled, err)
	}
	d, err := o.engine.Describe(h, o.fileVersion)
	if err != nil {
		o.engine.Release(h)
		return errors.NewFileError("describe failed", path, errors.ImportFailure, err)
	}
	d.Path = path

	o.mu.Lock()
	old := o.handle
	o.handle = h
	o.modelPath = path
	o.nativeData = nil
	o.selected = 0
	o.mu.Unlock()

	o.engine.Release(old)
	o.repo.Replace(d)
	o.model.Publish(d)
	o.record(logsink.Info, "Imported %s: %d meshes, %d vertices, %d indices",
		filepath.Base(path), d.NumMeshes(), d.TotalVerts(), d.TotalInds())
	return nil
}

// Write exports the current model to target, or to the current model's path
// with the native extension when target is empty.
func (o *Orchestrator) Write(ctx context.Context, target string) error {
	var dest string
	op, err := o.admit(ctx, "write", func() error {
		if !o.state.Get().Writable() {
			return errors.NewKindError(fmt.Sprintf("nothing to write in state %s", o.state.Get()), errors.InvalidOperation, nil)
		}
		dest = target
		if dest == "" {
			dest = types.NativePath(o.modelPath)
		}
		return fileio.ValidatePath(dest)
	})
	if err != nil {
		if !errors.IsBusy(err) {
			o.rejectPath("write", err)
		}
		return err
	}
	err = o.writeFile(op, dest)
	if err != nil {
		o.complete(op, types.Failed, err)
		return err
	}
	o.complete(op, types.WriteComplete, nil)
	return nil
}

func (o *Orchestrator) writeFile(op *operation, dest string) error {
	op.logger.With(log.F("path", dest)).Info("Writing native model")
	o.enter(types.Writing)

	o.mu.Lock()
	h, raw := o.handle, o.nativeData
	o.mu.Unlock()

	data := raw
	if h.Valid() {
		var err error
		data, err = o.engine.Export(h)
		if err != nil {
			return errors.NewFileError("export failed", dest, errors.ExportFailure, err)
		}
	}
	if err := o.files.WriteAll(op.ctx, dest, data, o.addProgress); err != nil {
		return err
	}
	metrics.RecordWrite(len(data))
	o.record(logsink.Info, "Wrote %d bytes to %s", len(data), filepath.Base(dest))
	return nil
}

// ChangeDirectory makes dir the working directory, retargets the watcher and
// publishes a fresh listing. An invalid dir is rejected with the state left
// unchanged.
func (o *Orchestrator) ChangeDirectory(ctx context.Context, dir string) error {
	if o.Busy() {
		return errors.ErrBusy
	}
	if err := fileio.ValidatePath(dir); err != nil {
		o.rejectPath("change directory", err)
		return err
	}
	// Absolute, so the watcher also covers the parent and sees the
	// directory itself being renamed away.
	abs, err := filepath.Abs(dir)
	if err != nil {
		err = errors.NewFileError("cannot change directory", dir, errors.InvalidPath, err)
		o.rejectPath("change directory", err)
		return err
	}
	dir = abs
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("not a directory")
	}
	if err != nil {
		err = errors.NewFileError("cannot change directory", dir, errors.InvalidPath, err)
		o.rejectPath("change directory", err)
		return err
	}

	op, err := o.admit(ctx, "change-directory", nil)
	if err != nil {
		return err
	}
	op.logger.With(log.F("directory", dir)).Info("Changing directory")
	o.enter(types.ChangingDirectory)

	entries, err := o.classifier.List(dir)
	if err != nil {
		err = errors.NewFileError("cannot list directory", dir, errors.IoError, err)
		o.complete(op, types.Failed, err)
		return err
	}
	if o.watcher != nil {
		if err := o.watcher.SetPath(dir); err != nil {
			o.record(logsink.Warning, "Not watching %s: %v", dir, err)
		}
	}

	o.mu.Lock()
	o.cwd = dir
	o.entries = entries
	o.refreshPending = false
	o.mu.Unlock()

	o.workingDir.Publish(dir)
	o.publishListing(entries)
	o.complete(op, types.Ready, nil)
	return nil
}

// MoveUp navigates to the parent of the working directory.
func (o *Orchestrator) MoveUp(ctx context.Context) error {
	cwd := o.workingDir.Get()
	if cwd == "" {
		return errors.NewKindError("no working directory", errors.InvalidOperation, nil)
	}
	parent := filepath.Dir(cwd)
	if parent == cwd {
		return nil
	}
	return o.ChangeDirectory(ctx, parent)
}

// Refresh re-lists the working directory. While an operation is in flight
// the refresh is deferred until it ends.
func (o *Orchestrator) Refresh() error {
	o.mu.Lock()
	if o.busyLocked() {
		o.refreshPending = true
		o.mu.Unlock()
		log.Debug("Refresh deferred until the current operation ends")
		return nil
	}
	o.refreshPending = false
	cwd := o.cwd
	o.mu.Unlock()

	if cwd == "" {
		return nil
	}
	entries, err := o.classifier.List(cwd)
	if err != nil {
		err = errors.NewFileError("cannot list directory", cwd, errors.IoError, err)
		o.record(logsink.Error, "Refresh failed: %v", err)
		o.publishLogView()
		return err
	}

	o.mu.Lock()
	o.entries = entries
	o.mu.Unlock()
	o.publishListing(entries)
	return nil
}

func (o *Orchestrator) runDeferredRefresh() {
	o.mu.Lock()
	pending := o.refreshPending && !o.busyLocked()
	o.mu.Unlock()
	if pending {
		_ = o.Refresh()
	}
}

// SetShowOnlyImportable hides entries that are neither directories, native
// models nor importable files.
func (o *Orchestrator) SetShowOnlyImportable(only bool) {
	o.mu.Lock()
	o.onlyImportable = only
	entries := o.entries
	o.mu.Unlock()
	o.publishListing(entries)
}

func (o *Orchestrator) publishListing(entries []types.FileEntry) {
	o.mu.Lock()
	only := o.onlyImportable
	o.mu.Unlock()

	view := make([]types.FileEntry, 0, len(entries))
	for _, e := range entries {
		if only && !e.IsDir && e.Classification == types.Other {
			continue
		}
		view = append(view, e)
	}
	o.listing.Publish(view)
	metrics.RecordRefresh(len(view))
}

// Entries returns the unfiltered working directory listing.
func (o *Orchestrator) Entries() []types.FileEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.FileEntry(nil), o.entries...)
}

// SelectMesh chooses the mesh shown by CurrentMesh.
func (o *Orchestrator) SelectMesh(idx int) error {
	d := o.repo.Current()
	if d == nil {
		return errors.ErrNoModel
	}
	if idx < 0 || idx >= d.NumMeshes() {
		return errors.NewKindError(fmt.Sprintf("mesh index %d out of range [0,%d)", idx, d.NumMeshes()), errors.InvalidOperation, nil)
	}
	o.mu.Lock()
	o.selected = idx
	o.mu.Unlock()
	return nil
}

// SelectedMesh returns the selected mesh index.
func (o *Orchestrator) SelectedMesh() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// CurrentMesh returns the selected mesh of the current model.
func (o *Orchestrator) CurrentMesh() (model.Mesh, bool) {
	d := o.repo.Current()
	if d == nil {
		return model.Mesh{}, false
	}
	return d.Mesh(o.SelectedMesh())
}

// ModelPath returns the path of the loaded model or native file.
func (o *Orchestrator) ModelPath() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modelPath
}

// CloseModel releases the current model and returns to Ready.
func (o *Orchestrator) CloseModel() error {
	o.mu.Lock()
	if o.busyLocked() {
		o.mu.Unlock()
		return errors.ErrBusy
	}
	old := o.handle
	o.handle = engine.InvalidHandle
	o.modelPath = ""
	o.nativeData = nil
	o.selected = 0
	o.mu.Unlock()

	o.engine.Release(old)
	o.repo.Clear()
	o.model.Publish(nil)
	o.setState(types.Ready)
	return nil
}

// Close cancels any operation in flight and releases the model handle.
func (o *Orchestrator) Close() {
	o.Cancel()
	o.mu.Lock()
	old := o.handle
	o.handle = engine.InvalidHandle
	o.mu.Unlock()
	o.engine.Release(old)
}
