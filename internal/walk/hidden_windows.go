//go:build windows

package walk

import (
	"path/filepath"
	"strings"
	"syscall"
)

// IsHidden reports whether path carries the hidden attribute or its base
// name starts with a dot.
func IsHidden(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := syscall.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&syscall.FILE_ATTRIBUTE_HIDDEN != 0
}
