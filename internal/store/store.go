package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultDBFile is the database file name inside the store directory.
const DefaultDBFile = "counters.db"

// CheckExists reports whether the counters database file is present in storePath.
// A missing file or missing directory is not an error; anything else that stops
// the stat, or a directory sitting where the file belongs, is ErrStorage.
func CheckExists(storePath string) (bool, error) {
	dbPath := GetDBPath(storePath)
	info, err := os.Stat(dbPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: stat %s: %w", ErrStorage, dbPath, err)
	case info.IsDir():
		return false, fmt.Errorf("%w: %s is a directory, not a database file", ErrStorage, dbPath)
	}
	return true, nil
}

// GetStorePath returns the path to the datastore directory.
// An empty configured path means the current working directory.
func GetStorePath(configured string) string {
	if configured == "" {
		return "."
	}
	return configured
}

// GetDBPath returns the full path to the database file.
func GetDBPath(storePath string) string {
	return filepath.Join(storePath, DefaultDBFile)
}
