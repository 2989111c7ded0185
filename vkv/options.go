// Package vkv is the embedding API: open a DB, begin transactions, and
// run the operations of spec.md §6 against them.
//
// Grounded on hivekit's pkg/hive facade (factory.go/options.go/types.go):
// a thin re-exporting layer over the internal packages that do the real
// work, here engine and collector rather than hive's registry editor.
package vkv

import "time"

// Options configures Open. Most fields are passthrough configuration
// for an external client wrapper around this engine (ClusterFile,
// tracing flags, ...); the engine itself only consults ReadOnly and the
// window/collector tuning fields, grounded on hive/merge/options.go's
// Options struct shape.
type Options struct {
	// APIVersion pins the wire-compatible surface a caller expects,
	// passthrough only.
	APIVersion int
	// ClusterFile and ClusterContents identify the cluster a real FDB
	// client would connect to; passthrough only, since this engine is a
	// single in-process instance (spec.md §1 Non-goals).
	ClusterFile     string
	ClusterContents []byte
	// RootPath scopes a real client's key namespace; passthrough only.
	RootPath []byte

	// ReadOnly rejects every mutating Tx operation with
	// vkverr.InvalidOptionValue.
	ReadOnly bool

	// DefaultTimeout and DefaultRetryLimit are passthrough timing hints
	// for an external retry loop; the engine itself does not time out
	// transactions.
	DefaultTimeout    time.Duration
	DefaultRetryLimit int
	// DefaultTracingFlags and LogSessionID are passthrough diagnostic
	// correlation fields for an external tracing system.
	DefaultTracingFlags int
	LogSessionID        string
	// NativeLibraryPath is passthrough; this engine has no native
	// client library to load.
	NativeLibraryPath string

	// WindowMaxAge and WindowMaxWrites tune when the active transaction
	// window rolls over (spec.md §4.G); zero means use the engine's
	// defaults.
	WindowMaxAge   time.Duration
	WindowMaxWrites int

	// CollectorFreeRatio is the fraction of a page's used bytes that
	// must be reclaimable before the collector compacts it (spec.md
	// §4.H); zero means use the collector's default (0.5).
	CollectorFreeRatio float64
	// CollectorInterval is how often the background collector runs;
	// zero means use the collector's default. A negative value disables
	// the background loop entirely (RunOnce can still be driven
	// manually via DB.CollectOnce).
	CollectorInterval time.Duration
}

func (o Options) windowMaxAge(fallback time.Duration) time.Duration {
	if o.WindowMaxAge > 0 {
		return o.WindowMaxAge
	}
	return fallback
}

func (o Options) windowMaxWrites(fallback int) int {
	if o.WindowMaxWrites > 0 {
		return o.WindowMaxWrites
	}
	return fallback
}

func (o Options) collectorFreeRatio(fallback float64) float64 {
	if o.CollectorFreeRatio > 0 {
		return o.CollectorFreeRatio
	}
	return fallback
}

func (o Options) collectorInterval(fallback time.Duration) time.Duration {
	if o.CollectorInterval > 0 {
		return o.CollectorInterval
	}
	return fallback
}
