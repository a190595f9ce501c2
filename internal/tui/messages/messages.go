package messages

import (
	"modeltool/internal/logsink"
	"modeltool/internal/model"
	"modeltool/pkg/types"
)

// StateMsg carries a new orchestrator state.
type StateMsg struct {
	State types.OperationState
}

// ProgressMsg carries the running progress of the operation in flight.
type ProgressMsg struct {
	Progress types.Progress
}

// ListingMsg carries a republished directory listing.
type ListingMsg struct {
	Entries []types.FileEntry
}

// ModelMsg carries the current model; nil when none is loaded.
type ModelMsg struct {
	Model *model.Description
}

// LogMsg carries the filtered log view.
type LogMsg struct {
	Records []logsink.Record
}

// DirectoryChangeMsg carries the working directory.
type DirectoryChangeMsg struct {
	Path string
}

// OperationDoneMsg reports the end of an operation started from the UI.
type OperationDoneMsg struct {
	Operation string
	Err       error
}

// BatchDoneMsg reports the end of a convert-all.
type BatchDoneMsg struct {
	Result types.BatchResult
	Err    error
}
