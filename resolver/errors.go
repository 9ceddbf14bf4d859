package resolver

import (
	"errors"
	"fmt"
)

// ErrNameCollision is wrapped by RelocationError when the trash already holds
// a file with the same name
var ErrNameCollision = errors.New("destination already exists")

// MissingFileError reports an indexed path that no longer exists on disk
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file not found %s", e.Path)
}

// RelocationError reports a failed move into the trash. The file and its
// record are left where they were.
type RelocationError struct {
	Path string
	Dest string
	Err  error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("cannot move %s to %s: %v", e.Path, e.Dest, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }
