package filex

import (
	"fmt"
	"os"
)

// EnsureDir creates dir and any missing parents, private to the owner, and
// returns the path. The ledger, checkpoint and credentials all live under a
// directory prepared this way.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}
