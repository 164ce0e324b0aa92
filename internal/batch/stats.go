package batch

// Stats contains statistics from a batch processing operation.
type Stats struct {
	// Processed is the number of items successfully written to the sink.
	Processed int

	// Skipped is the number of items skipped (ShouldProcess returned false).
	Skipped int

	// TotalBytes is the number of bytes written for processed items.
	TotalBytes uint64
}
