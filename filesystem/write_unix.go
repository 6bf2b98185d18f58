//go:build !windows

package filesystem

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/renameio/v2"
)

// writeFileAtomic replaces path so readers never observe a partial descriptor
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	return errors.WithStack(renameio.WriteFile(path, data, perm))
}
