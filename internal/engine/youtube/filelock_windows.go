//go:build windows

package youtube

import "time"

// fileLock is a no-op on Windows; the in-process mutex still applies.
type fileLock struct{}

func newFileLock(string) *fileLock { return &fileLock{} }

func (l *fileLock) lock(time.Duration) error { return nil }

func (l *fileLock) unlock() {}
