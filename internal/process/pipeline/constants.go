package pipeline

// Pipeline stages reported in diagnostics and metrics.
const (
	StageCollect   = "collect"
	StageNormalize = "normalize"
	StageScore     = "score"
	StageSelect    = "select"
	StageEnrich    = "enrich"
	StageAssemble  = "assemble"
	StageTotal     = "total"
)

// Output paths
const (
	PathEnriched = "enriched"
	PathFallback = "fallback"
	PathError    = "error"
)

// Cache lookup results
const (
	cacheHit    = "hit"
	cacheMiss   = "miss"
	cacheBypass = "bypass"
)

// Archive write results
const (
	archiveOK    = "ok"
	archiveError = "error"
)

// Log field constants
const (
	LogFieldRunID = "run_id"
	logFieldPath  = "path"
	logFieldETag  = "etag"
	logFieldAge   = "age"
)
