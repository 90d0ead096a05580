package config

import "github.com/dustin/go-humanize"

// ParseSize parses a human-readable size string such as "1MB" or "512KiB"
// into a byte count, used for the maxFileSize policy limit.
func ParseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}
