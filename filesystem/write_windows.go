//go:build windows

package filesystem

import (
	"os"

	"github.com/cockroachdb/errors"
)

// renameio does not support windows; write through a sibling temp file instead
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}
