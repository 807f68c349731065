package rewriter

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// BackupSuffix is appended to an artifact's path to name its backup.
const BackupSuffix = ".bak"

// swap moves path to its backup, replacing an older one, and renames work to
// path. When the second rename fails the original is moved back.
func swap(fs afero.Fs, path, work string) (string, error) {
	backup := path + BackupSuffix
	if ok, _ := afero.Exists(fs, backup); ok {
		if err := fs.Remove(backup); err != nil {
			return "", fmt.Errorf("failed to remove old backup %s: %w", backup, err)
		}
	}
	if err := fs.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if err := fs.Rename(work, path); err != nil {
		err = fmt.Errorf("failed to replace %s: %w", path, err)
		if rerr := fs.Rename(backup, path); rerr != nil {
			return "", multierror.Append(err, fmt.Errorf("failed to roll back %s: %w", path, rerr))
		}
		return "", err
	}
	return backup, nil
}

// Restore puts an artifact's backup back in place, discarding the patched
// library.
func Restore(fs afero.Fs, path string) error {
	backup := path + BackupSuffix
	ok, err := afero.Exists(fs, backup)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNoBackup)
	}
	if ok, _ := afero.Exists(fs, path); ok {
		if err := fs.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if err := fs.Rename(backup, path); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}
	return nil
}
