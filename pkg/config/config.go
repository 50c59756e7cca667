package config

// Stage identifies how far the pipeline should run before dumping
// its intermediate output and stopping.
type Stage int

const (
	StageAll Stage = iota
	StageLex
	StageParse
	StageSemant
)

// Target-machine constants for the 32-bit x86 backend.
const (
	// WordSize is the size of one machine word in bytes.
	WordSize = 4

	// NumObjHeaders is the number of header words at the start of
	// every object: class tag, typename pointer, object size,
	// dispatch table pointer, parent prototype pointer.
	NumObjHeaders = 5

	// MaxStringLen bounds the length of a string constant in bytes.
	MaxStringLen = 1024

	// HeapSize is the fixed size of the runtime bump-allocator heap.
	HeapSize = 10000000

	// ClassTagBase is the first class tag handed out.
	ClassTagBase = 100
)

// Config carries the options of one compiler run. A single value is
// built by the CLI and threaded through the pipeline; no stage keeps
// package-level state.
type Config struct {
	StopAfter Stage
	OutPath   string
}

func NewConfig() *Config {
	return &Config{
		StopAfter: StageAll,
		OutPath:   "out.S",
	}
}
