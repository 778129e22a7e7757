//go:build !(darwin || linux)

package rtms

import (
	"fmt"
	"runtime"
)

func loadNativeLib() (nativeLib, error) {
	return nil, fmt.Errorf("%w: unsupported platform %s", ErrLibraryNotFound, runtime.GOOS)
}
