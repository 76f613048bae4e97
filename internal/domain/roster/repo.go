package roster

import (
	"context"
	"errors"
)

// Partition names double as file base names.
const (
	PartitionMatched    = "combined_matched_data"
	PartitionUnmatched  = "unmatched_data"
	PartitionDuplicates = "duplicate_names"
)

var (
	// ErrNoData means a partition has never been written. Callers treat it
	// as "nothing combined yet", not as a failure.
	ErrNoData = errors.New("no data yet")
	// ErrNeedTwoSources is returned by Combine before both extracts are read.
	ErrNeedTwoSources = errors.New("two source files must be loaded before combining")
)

// PartitionRepository persists whole partitions. Save overwrites; Load
// returns ErrNoData when the partition does not exist.
type PartitionRepository interface {
	Save(ctx context.Context, partition string, t *Table) error
	Load(ctx context.Context, partition string) (*Table, error)
	Path(partition string) string
}

// Vault is the encryption-at-rest collaborator. The engine only ever
// decrypts before reading; re-encrypting is the caller's checkpoint.
type Vault interface {
	IsEncrypted(path string) (bool, error)
	DecryptFile(path string) error
}
