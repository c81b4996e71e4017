package dataset

import (
	"path"

	"github.com/xxxsen/dsdav/pathkit"
)

const MarkerName = ".keep"

// DirectoryMarker is the empty object that keeps an otherwise empty
// directory observable.
type DirectoryMarker struct {
	Dir string
}

func (m DirectoryMarker) Path() string {
	return pathkit.Join(m.Dir, MarkerName)
}

func IsMarker(name string) bool {
	return path.Base(name) == MarkerName
}
