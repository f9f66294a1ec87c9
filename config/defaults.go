// Package config provides configuration defaults and file loading
// for the flowscope application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default HTTP API listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8137"

	// DefaultMaxPayloadSize limits fetched resource size to prevent OOM.
	// Telemetry CSVs are small; 32 MiB is generous.
	// Override via config: fetch.max_payload_size
	DefaultMaxPayloadSize = 32 * 1024 * 1024
)

// =============================================================================
// Fetch Defaults
// =============================================================================

const (
	// DefaultFetchTimeout bounds a single resource fetch.
	// Override via config: fetch.timeout
	DefaultFetchTimeout = 15 * time.Second

	// DefaultUserAgent identifies flowscope to the telemetry data server.
	// Override via config: fetch.user_agent
	DefaultUserAgent = "flowscope/1.0"
)

// =============================================================================
// Data Layout Defaults
// =============================================================================

const (
	// DefaultManifestPath is where the availability manifest is read from,
	// relative to the data root.
	// Override via config: data.manifest
	DefaultManifestPath = "manifest.yaml"

	// DefaultTopologyPath is where the topology layout is read from,
	// relative to the data root.
	// Override via config: data.topology
	DefaultTopologyPath = "topology.yaml"
)

// =============================================================================
// Stats Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy used for
	// per-series percentile statistics.
	// Override via config: stats.accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Shutdown Defaults
// =============================================================================

const (
	// DefaultShutdownTimeout is how long the HTTP server may take to drain
	// in-flight requests during shutdown.
	// Override via config: server.shutdown_timeout
	DefaultShutdownTimeout = 10 * time.Second
)
