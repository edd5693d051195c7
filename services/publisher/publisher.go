package publisher

// Publisher hands finished location records to a downstream sink
type Publisher interface {
	// Publish writes one serialized location record keyed by location ID
	Publish(locationID string, record []byte) error

	// Trim bounds whatever backlog the sink keeps; a no-op for sinks
	// without one
	Trim() error

	// Close releases the sink's resources
	Close() error
}
