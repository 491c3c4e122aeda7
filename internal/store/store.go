// Package store persists run history: acquisition batches and per-stage
// outcomes. The status subcommand reads it; deleting the DB only loses
// history, never pipeline state (completion markers live on disk next
// to the data).
package store

// DefaultDBPath is the default relative path for the SQLite DB
// (per-workspace). Open() creates the parent dir (.autorxte).
const DefaultDBPath = ".autorxte/autorxte.db"

// Batch is one acquisition run.
type Batch struct {
	ID         int64
	UUID       string
	Source     string
	Region     string
	Items      int
	Completed  int
	Failed     int
	Bytes      int64
	StartedAt  string
	FinishedAt string
}

// StageRun is one directory × stage outcome from a pipeline run.
type StageRun struct {
	ID        int64
	RunUUID   string
	Stage     string
	Dir       string
	Outcome   string // succeeded | skipped | precondition_failed | failed
	Reason    string
	CreatedAt string
}

// Store is the persistence facade. CLI and pipeline use only this
// interface; implementation is SQLite or in-memory.
type Store interface {
	RecordBatch(b *Batch) (int64, error)
	FinishBatch(id int64, completed, failed int, bytes int64) error
	ListBatches(limit int) ([]*Batch, error)

	RecordStageRun(r *StageRun) (int64, error)
	ListStageRuns(limit int) ([]*StageRun, error)

	Close() error
}
