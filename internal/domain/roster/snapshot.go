package roster

import (
	"errors"
	"fmt"
	"os"

	"github.com/ehr/rosterlink/internal/platform/sheet"
)

// partitionFile is a partition file as it was before a combine started.
type partitionFile struct {
	path    string
	data    []byte
	perm    os.FileMode
	existed bool
}

// snapshotPartitions captures the current bytes of each partition file.
// Encrypted files are captured as they are.
func snapshotPartitions(repo PartitionRepository, partitions []string) ([]partitionFile, error) {
	out := make([]partitionFile, 0, len(partitions))
	for _, p := range partitions {
		path := repo.Path(p)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			out = append(out, partitionFile{path: path})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", p, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", p, err)
		}
		out = append(out, partitionFile{path: path, data: data, perm: info.Mode().Perm(), existed: true})
	}
	return out, nil
}

// restorePartitions puts every snapshotted file back, removing files that
// did not exist before. All files are attempted; errors are joined.
func restorePartitions(files []partitionFile) error {
	var errs []error
	for _, f := range files {
		if !f.existed {
			if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := sheet.ReplaceFile(f.path, f.data, f.perm); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
