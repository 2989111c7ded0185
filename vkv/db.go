package vkv

import (
	"github.com/vkvdb/vkv/collector"
	"github.com/vkvdb/vkv/engine"
	"github.com/vkvdb/vkv/internal/obs"
)

// DB is one opened instance of the engine: exactly the process-wide
// scope spec.md §9 calls for ("no implicit process-wide singleton" — a
// caller may open as many DBs as it likes, each fully independent).
type DB struct {
	eng       *engine.Engine
	collector *collector.Collector
	opts      Options
	stop      chan struct{}
}

// Open creates a DB with its own engine and, unless
// CollectorInterval is negative, starts its background collector loop.
func Open(opts Options) (*DB, error) {
	cfg := engine.DefaultConfig()
	cfg.WindowAge = opts.windowMaxAge(cfg.WindowAge)
	cfg.WindowMaxCardinality = opts.windowMaxWrites(cfg.WindowMaxCardinality)

	eng := engine.New(cfg)

	ccfg := collector.DefaultConfig()
	ccfg.SweepThreshold = opts.collectorFreeRatio(ccfg.SweepThreshold)
	ccfg.Interval = opts.collectorInterval(ccfg.Interval)

	db := &DB{
		eng:       eng,
		collector: collector.New(eng, ccfg),
		opts:      opts,
	}

	if opts.CollectorInterval >= 0 {
		db.stop = make(chan struct{})
		go db.collector.Run(db.stop)
	}

	obs.Info("database opened", "read_only", opts.ReadOnly)
	return db, nil
}

// Close stops the background collector loop. The DB is not usable
// afterward.
func (db *DB) Close() error {
	if db.stop != nil {
		close(db.stop)
		db.stop = nil
	}
	return nil
}

// BeginTransaction starts a new transaction against db.
func (db *DB) BeginTransaction() *Tx {
	return &Tx{db: db, inner: db.eng.BeginTransaction()}
}

// CollectOnce runs one collector pass synchronously, for tests and for
// callers that disabled the background loop via a negative
// CollectorInterval.
func (db *DB) CollectOnce() collector.Stats {
	return db.collector.RunOnce()
}

// LastCommitVersion returns the most recently published commit
// sequence, for diagnostics.
func (db *DB) LastCommitVersion() uint64 {
	return db.eng.LastCommitSeq()
}
