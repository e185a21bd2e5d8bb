package watcher

import "errors"

// Sentinel errors for the directory watcher.
var (
	ErrNotADirectory = errors.New("watch path is not a directory")
	ErrNoAnalyzer    = errors.New("watcher needs an analyzer")
)
