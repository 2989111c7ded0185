package heap

// BucketSpec describes one size class: the largest record (header +
// payload) it accepts, and the page size used to back it. Spec §4.B
// requires the smallest bucket to fit at least 256 records per page;
// MaxRecordSize and PageSize are chosen per call site to satisfy that.
type BucketSpec struct {
	MaxRecordSize int32 // largest header+payload size this bucket accepts
	PageSize      int32 // size of each page allocated for this bucket
}

// Config is the full bucket layout for one heap (key heap or value
// heap). Buckets must be sorted ascending by MaxRecordSize; the last
// bucket is the catch-all for anything not satisfied by a smaller one.
type Config struct {
	Name    string
	Buckets []BucketSpec
}

// KeyHeapConfig is the default bucket layout for key records, grounded
// on spec §4.B: four buckets sized for payload <=64, <=256, <=1024, and
// up to ~10000 bytes, with page sizes 16KB/64KB/256KB/1MB. Sizes here
// are header-inclusive (see record.KeyHeaderSize).
var KeyHeapConfig = Config{
	Name: "key",
	Buckets: []BucketSpec{
		{MaxRecordSize: 64 + 32, PageSize: 16 * 1024},
		{MaxRecordSize: 256 + 32, PageSize: 64 * 1024},
		{MaxRecordSize: 1024 + 32, PageSize: 256 * 1024},
		{MaxRecordSize: 10_000 + 32, PageSize: 1024 * 1024},
	},
}

// ValueHeapConfig is the default bucket layout for value records,
// grounded on spec §4.B: five buckets targeting small ints (~48B),
// small documents (~160B), medium arrays (~512B), small JSON (~4KB),
// and blobs up to ~100KB, with page sizes 16KB/64KB/128KB/256KB/1MB.
var ValueHeapConfig = Config{
	Name: "value",
	Buckets: []BucketSpec{
		{MaxRecordSize: 48 + 48, PageSize: 16 * 1024},
		{MaxRecordSize: 160 + 48, PageSize: 64 * 1024},
		{MaxRecordSize: 512 + 48, PageSize: 128 * 1024},
		{MaxRecordSize: 4096 + 48, PageSize: 256 * 1024},
		{MaxRecordSize: 100_000 + 48, PageSize: 1024 * 1024},
	},
}

// classFor returns the bucket index that should serve a record of the
// given total size (header + payload), or -1 if no configured bucket is
// large enough.
//
// Grounded on hive/alloc/size_classes.go's getSizeClass: a linear scan
// is used instead of that file's binary search because the engine's
// bucket counts are small (4-5 classes, not ~40-80), so the simpler
// code is preferred without sacrificing the O(log N) commit bound (bucket
// selection is O(1) amortized against the constant class count).
func classFor(cfg Config, size int32) int {
	for i, b := range cfg.Buckets {
		if size <= b.MaxRecordSize {
			return i
		}
	}
	return -1
}
