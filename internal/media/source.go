package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
)

var ErrNoDevice = errors.New("no capture device")

// ErrTrackEnded is returned when attaching a track whose source is gone.
var ErrTrackEnded = errors.New("capture already ended")

// SourceInfo describes a capture source file.
type SourceInfo struct {
	Source Source
	Path   string
	Size   int64
}

// ValidateSources checks every configured source file and reports all
// problems at once. Empty paths are skipped.
func ValidateSources(paths map[Source]string) ([]SourceInfo, error) {
	sources := make([]Source, 0, len(paths))
	for source := range paths {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	var infos []SourceInfo
	var problems []string

	for _, source := range sources {
		path := paths[source]
		if path == "" {
			continue
		}
		info, err := statSource(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", source, err))
			continue
		}
		info.Source = source
		infos = append(infos, info)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("media source validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return infos, nil
}

func statSource(path string) (SourceInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SourceInfo{}, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
		}
		return SourceInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}
	if stat.IsDir() {
		return SourceInfo{}, fmt.Errorf("%s: is a directory", path)
	}
	if stat.Size() == 0 {
		return SourceInfo{}, fmt.Errorf("%s: file is empty", path)
	}

	return SourceInfo{Path: absPath, Size: stat.Size()}, nil
}

// openSource opens a capture file, reporting failures the way a device
// would: a missing source is "no device", an unreadable one "permission
// denied".
func openSource(op, path string) (*os.File, error) {
	if path == "" {
		return nil, callerr.MediaAccess(op, ErrNoDevice, "no device")
	}
	if _, err := statSource(path); err != nil {
		return nil, callerr.MediaAccess(op, err, describe(err))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, callerr.MediaAccess(op, err, describe(err))
	}
	return file, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	case errors.Is(err, fs.ErrNotExist):
		return "no device"
	}
	return "unreadable"
}
