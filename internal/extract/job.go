package extract

import (
	"asrprep/internal/fbank"
	"asrprep/internal/manifest"
)

// Job is a contiguous slice of a partition assigned to one worker.
type Job struct {
	Index       int            `json:"index"`
	Partition   string         `json:"partition"`
	ArchivePath string         `json:"archive_path"`
	ChunkFrames int            `json:"chunk_frames"`
	Features    fbank.Options  `json:"features"`
	Cuts        []manifest.Cut `json:"cuts"`
}

// Failure records a cut dropped from the job output.
type Failure struct {
	CutID string `json:"cut_id"`
	Error string `json:"error"`
}

// Result is the output of a finished job.
type Result struct {
	Index    int            `json:"index"`
	Cuts     []manifest.Cut `json:"cuts"`
	Failures []Failure      `json:"failures,omitempty"`
	Frames   int64          `json:"frames"`
}
