package console

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// EmbedPrefix selects an image bundled into the binary.
const EmbedPrefix = "embed:"

var ErrExtension = errors.New("only .png, .jpg and .jpeg images are accepted")

var allowedExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// AllowedExt reports whether name ends in an accepted image extension.
func AllowedExt(name string) bool {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return allowedExts[strings.ToLower(ext)]
}

// LoadImage reads the bytes named by spec, either a file path or
// "embed:<name>" inside assets. The extension is checked before anything is
// read. name is the base name shown to displays.
func LoadImage(spec string, assets fs.FS) (name string, data []byte, err error) {
	if len(spec) >= len(EmbedPrefix) && strings.EqualFold(spec[:len(EmbedPrefix)], EmbedPrefix) {
		res := strings.TrimPrefix(spec[len(EmbedPrefix):], "/")
		if !AllowedExt(res) {
			return "", nil, fmt.Errorf("%w: %s", ErrExtension, spec)
		}
		if assets == nil {
			return "", nil, fmt.Errorf("no bundled assets: %w", fs.ErrNotExist)
		}
		data, err := fs.ReadFile(assets, res)
		if err != nil {
			return "", nil, fmt.Errorf("load %s: %w", spec, err)
		}
		return path.Base(res), data, nil
	}

	if !AllowedExt(spec) {
		return "", nil, fmt.Errorf("%w: %s", ErrExtension, spec)
	}
	info, err := os.Stat(spec)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", spec, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("load %s: not a regular file", spec)
	}
	data, err = os.ReadFile(spec)
	if err != nil {
		return "", nil, fmt.Errorf("load %s: %w", spec, err)
	}
	return filepath.Base(spec), data, nil
}
