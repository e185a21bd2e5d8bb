package radar

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/okian/sprof/internal/domain/model"
)

// NormalizeExt returns ext with a leading dot, or ExtRDA when ext is empty
// or not a supported radar extension.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ExtRDA, ExtRAD, ExtCSV:
		return ext
	default:
		return ExtRDA
	}
}

// Search lists the radar files of dir with extension ext whose simplified
// name contains pattern. A trailing digit in pattern selects the trial
// number: "alex2" matches "Juillet Alex 2.rda" but not "Juillet Alex 1.rda".
// Hidden files are skipped and paths are returned sorted.
func Search(dir, pattern, ext string) ([]string, error) {
	ext = NormalizeExt(ext)
	var trial byte
	if n := len(pattern); n > 0 && pattern[n-1] >= '0' && pattern[n-1] <= '9' {
		trial, pattern = pattern[n-1], pattern[:n-1]
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	want := model.SimplifyName(pattern)

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.ToLower(filepath.Ext(name)) != ext {
			continue
		}
		if !strings.Contains(model.SimplifyName(name), want) {
			continue
		}
		if trial != 0 {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if last := rune(stem[len(stem)-1]); unicode.IsDigit(last) && byte(last) != trial {
				continue
			}
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
