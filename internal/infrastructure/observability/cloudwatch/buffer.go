package cloudwatch

// appendBounded appends items and evicts the oldest entries above limit.
// It returns the new buffer and the number of evicted entries.
func appendBounded[T any](buffer, items []T, limit int) ([]T, int) {
	buffer = append(buffer, items...)
	if len(buffer) <= limit {
		return buffer, 0
	}

	dropped := len(buffer) - limit
	kept := make([]T, limit, max(limit, cap(buffer)))
	copy(kept, buffer[dropped:])
	return kept, dropped
}

// requeue puts unsent entries back in front of entries buffered during the flush.
func requeue[T any](unsent, buffered []T, limit int) ([]T, int) {
	merged := make([]T, 0, len(unsent)+len(buffered))
	merged = append(merged, unsent...)
	return appendBounded(merged, buffered, limit)
}

// notify wakes the flush loop without blocking the caller.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
