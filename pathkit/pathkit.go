package pathkit

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrDestination = errors.New("invalid destination")
)

var dangerousPatterns = []string{"..", "\\", "\x00"}

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// EncodeSegment percent-encodes everything but the unreserved set, including "/".
func EncodeSegment(seg string) string {
	var sb strings.Builder
	sb.Grow(len(seg))
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

// Encode escapes each segment of p and keeps the separators as is,
// empty segments (from leading, trailing or doubled slashes) are kept.
func Encode(p string) string {
	if len(p) == 0 {
		return p
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		parts[i] = EncodeSegment(part)
	}
	return strings.Join(parts, "/")
}

func Decode(p string) (string, error) {
	if len(p) == 0 {
		return p, nil
	}
	rs, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return rs, nil
}

// Validate reports whether p is safe to resolve under a dataset root.
// Empty path means the root and is accepted.
func Validate(p string) bool {
	if len(p) == 0 {
		return true
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(p, pattern) {
			return false
		}
	}
	return !strings.HasPrefix(p, "/")
}

// Clean turns a raw (escaped) request path into a validated virtual path.
func Clean(raw string) (string, error) {
	p, err := Decode(raw)
	if err != nil {
		return "", err
	}
	p = strings.Trim(p, "/")
	if !Validate(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return p, nil
}

// StripRoot removes the mount root from an escaped request path.
func StripRoot(p string, root string) string {
	root = strings.TrimSuffix(root, "/")
	if len(root) == 0 {
		return p
	}
	if p == root {
		return ""
	}
	if strings.HasPrefix(p, root+"/") {
		return p[len(root):]
	}
	return p
}

// ParseDestination extracts the escaped target path from a Destination header.
// After the mount root is removed, a path with more than three "/" separated
// parts loses its first three parts, otherwise only the leading "/".
func ParseDestination(header string, root string) (string, error) {
	if len(header) == 0 {
		return "", fmt.Errorf("%w: header missing", ErrDestination)
	}
	u, err := url.Parse(header)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDestination, err)
	}
	p := StripRoot(u.EscapedPath(), root)
	parts := strings.SplitN(p, "/", 4)
	if len(strings.Split(p, "/")) > 3 {
		return parts[len(parts)-1], nil
	}
	return strings.TrimLeft(p, "/"), nil
}

func Join(elem ...string) string {
	return strings.Trim(path.Join(elem...), "/")
}

// Parent returns the parent of a virtual path, the root is "".
func Parent(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func Base(p string) string {
	if len(p) == 0 {
		return "/"
	}
	return path.Base(p)
}

// Ancestors lists the strict prefixes of p, nearest to the root first.
func Ancestors(p string) []string {
	segs := strings.Split(p, "/")
	rs := make([]string, 0, len(segs))
	for i := 1; i < len(segs); i++ {
		rs = append(rs, strings.Join(segs[:i], "/"))
	}
	return rs
}
