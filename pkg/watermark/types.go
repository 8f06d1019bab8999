package watermark

import "time"

// Store is the on-disk shape of the watermark file: one checkpoint value
// per source name, e.g. {"bookings": 10250, "customers": "2024-10-20T23:59:59"}.
// Values are int64 IDs or string timestamps.
type Store struct {
	// Version of the store format (for future compatibility)
	Version string `json:"version"`

	// Watermarks maps source name to its last successfully extracted value.
	Watermarks map[string]interface{} `json:"watermarks"`

	// UpdatedAt is the wall-clock time of the last persisted update.
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreVersion is the current watermark store format version
const StoreVersion = "1.0"

func newStore() *Store {
	return &Store{
		Version:    StoreVersion,
		Watermarks: make(map[string]interface{}),
	}
}
