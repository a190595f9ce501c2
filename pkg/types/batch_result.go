package types

// ConvertResult holds the outcome of converting a single file in a batch.
type ConvertResult struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	Converted       bool   `json:"converted"`
	Error           error  `json:"-"`
}

// BatchResult summarizes a convert-all run. Batches are not atomic: Items
// holds one result per attempted file, in listing order.
type BatchResult struct {
	Directory string          `json:"directory"`
	Items     []ConvertResult `json:"items"`
	Cancelled bool            `json:"cancelled"`
}

// Succeeded returns the number of files converted.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.Converted {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed.
func (b BatchResult) Failed() int {
	return len(b.Items) - b.Succeeded()
}
