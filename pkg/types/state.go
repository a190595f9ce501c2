package types

import "fmt"

// OperationState is the orchestrator's externally observable state.
// Exactly one is current at any time.
type OperationState int

const (
	// Idle means no model has ever been loaded.
	Idle OperationState = iota
	Ready
	ChangingDirectory
	Reading
	ReadComplete
	Importing
	ImportComplete
	Writing
	WriteComplete
	Failed
)

// String returns the status-line name of the state
func (s OperationState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Ready:
		return "Ready"
	case ChangingDirectory:
		return "ChangingDirectory"
	case Reading:
		return "Reading"
	case ReadComplete:
		return "ReadComplete"
	case Importing:
		return "Importing"
	case ImportComplete:
		return "ImportComplete"
	case Writing:
		return "Writing"
	case WriteComplete:
		return "WriteComplete"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("OperationState(%d)", int(s))
	}
}

// InFlight reports whether an operation is running in this state.
func (s OperationState) InFlight() bool {
	switch s {
	case ChangingDirectory, Reading, Importing, Writing:
		return true
	case Idle, Ready, ReadComplete, ImportComplete, WriteComplete, Failed:
		return false
	default:
		return false
	}
}

// Transferring reports whether progress samples are meaningful in this state.
func (s OperationState) Transferring() bool {
	switch s {
	case Reading, Importing, Writing:
		return true
	default:
		return false
	}
}

// Writable reports whether a loaded model can be written from this state.
func (s OperationState) Writable() bool {
	switch s {
	case ReadComplete, ImportComplete, WriteComplete:
		return true
	default:
		return false
	}
}
