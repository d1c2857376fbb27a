package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"asrprep/internal/audio"
)

var assetPattern = regexp.MustCompile(`^([0-9])_([0-9]+)_([0-9]+)$`)

// Asset is one audio file matched against the corpus layout.
type Asset struct {
	Path    string
	Speaker string
	Digit   int
	Index   int
}

// ID returns the recording id <speaker>_<digit>_<index>. Sorting by id
// groups a speaker's recordings together.
func (a Asset) ID() string {
	return fmt.Sprintf("%s_%d_%d", a.Speaker, a.Digit, a.Index)
}

// Skipped describes a file that did not match the layout.
type Skipped struct {
	Path   string
	Reason string
}

// Scan walks <root>/data and returns matching assets ordered by id.
func Scan(root string, extensions []string) ([]Asset, []Skipped, error) {
	dataDir := filepath.Join(root, "data")
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", dataDir)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed["."+strings.TrimPrefix(strings.ToLower(ext), ".")] = struct{}{}
	}

	var assets []Asset
	var skipped []Skipped
	err = filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dataDir {
				return walkErr
			}
			skipped = append(skipped, Skipped{Path: path, Reason: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := allowed[ext]; !ok {
			return nil
		}
		asset, reason := parseAsset(dataDir, path)
		if reason != "" {
			skipped = append(skipped, Skipped{Path: path, Reason: reason})
			return nil
		}
		assets = append(assets, asset)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID() < assets[j].ID() })
	return assets, skipped, nil
}

func parseAsset(dataDir, path string) (Asset, string) {
	rel, err := filepath.Rel(dataDir, path)
	if err != nil {
		return Asset{}, err.Error()
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return Asset{}, "file is not inside a speaker directory"
	}
	stem := strings.TrimSuffix(parts[1], filepath.Ext(parts[1]))
	match := assetPattern.FindStringSubmatch(stem)
	if match == nil {
		return Asset{}, "file name does not match <digit>_<speaker>_<index>"
	}
	if match[2] != parts[0] {
		return Asset{}, fmt.Sprintf("speaker %q in file name does not match directory %q", match[2], parts[0])
	}
	digit, _ := strconv.Atoi(match[1])
	index, err := strconv.Atoi(match[3])
	if err != nil {
		return Asset{}, "invalid index"
	}
	if !audio.Supported(path) {
		return Asset{}, "unsupported audio format"
	}
	return Asset{Path: path, Speaker: match[2], Digit: digit, Index: index}, ""
}
