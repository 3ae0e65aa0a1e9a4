// Package fileutil holds small filesystem helpers shared across services.
package fileutil

import (
	"errors"
	"fmt"
	"os"
)

// Replace atomically moves src over dest. Both paths must live on the same
// filesystem; rename is what makes the replacement atomic, so a half-written
// src must never be passed here.
func Replace(src, dest string) error {
	if src == dest {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("stat replacement: %w", err)
	}
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// Exists reports whether path refers to an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
