package nds

// Defaults mirror the original's "generous, cheap to over-provision" stance:
// a memory-mapped backend only spends virtual address space on headroom, so
// there's little reason to tune these down.
const (
	DefaultDatabases      = 16
	DefaultYieldEvery     = 1000
	DefaultCacheSizeBytes = 32 << 20 // 32 MiB of disk-record cache
)

// Config configures an NDSRuntime and, transitively, its diskdb.Environment.
type Config struct {
	// Dir is the environment directory: one bbolt data file plus any
	// snapshot-* siblings.
	Dir string
	// Databases is the number of logical databases, N in the spec's
	// db_id ∈ [0, N) range.
	Databases int
	// YieldEvery bounds how many keys WalkNDS/PreloadNDS visit between
	// cooperative yields.
	YieldEvery int
	// MaxTxBytes bounds per-transaction accumulation in diskdb; see
	// diskdb.DiskDB.Put.
	MaxTxBytes int
	// InitialMmapSize is passed through to diskdb's bbolt.Options.
	InitialMmapSize int
	// CacheSizeBytes sizes the fastcache cache fronting disk reads in
	// GetNDS. It holds encoded records, which GetNDS decodes on every hit.
	CacheSizeBytes int
}

func (c Config) withDefaults() Config {
	if c.Databases <= 0 {
		c.Databases = DefaultDatabases
	}
	if c.YieldEvery <= 0 {
		c.YieldEvery = DefaultYieldEvery
	}
	if c.CacheSizeBytes <= 0 {
		c.CacheSizeBytes = DefaultCacheSizeBytes
	}
	return c
}
