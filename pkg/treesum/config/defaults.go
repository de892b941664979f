// Package config provides configuration management for treesum.
package config

// Default configuration values for treesum.
const (
	// DefaultScanPath is the directory scanned when none is specified.
	DefaultScanPath = "."

	// DefaultFormat is the report format used when none is configured.
	DefaultFormat = "pretty"

	// DefaultVerbosity is the starting verbosity level. 0 is errors
	// only, 1 adds warnings, 2 adds progress, 3 and up adds debug.
	DefaultVerbosity = 2

	// DefaultModifyWindow is the modification time tolerance in
	// seconds. Zero requires exact timestamp matches.
	DefaultModifyWindow = 0

	// DefaultExcludeMarker disables marker-based subtree exclusion.
	// A manifest can still enable one with its option line.
	DefaultExcludeMarker = ""

	// DefaultRotateMaxSize is the log size threshold for rotation.
	DefaultRotateMaxSize = "10MB"

	// DefaultRotateMaxAge is the retention of rotated logs in days.
	DefaultRotateMaxAge = 30

	// DefaultRotateMaxBackups is the number of rotated logs kept.
	DefaultRotateMaxBackups = 5
)
