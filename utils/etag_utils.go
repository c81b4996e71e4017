package utils

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentETag returns a strong etag for data.
func ContentETag(data []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(data), 16) + `"`
}
