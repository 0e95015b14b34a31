package biotest

import "strings"

// Mode is a set of flags controlling how a run accesses the target.
type Mode uint

const (
	// ModeRandomize writes blocks in a permuted order instead of sequentially.
	ModeRandomize Mode = 1 << iota
	// ModeDirect bypasses the page cache (O_DIRECT).
	ModeDirect
	// ModeBuffered routes transfers through a user-space buffered stream.
	ModeBuffered
	// ModeAsync issues writes through the completion queue.
	ModeAsync
	// ModeVerifyOnly skips the write pass and only checks existing data.
	ModeVerifyOnly
	// ModeRetryOnError retries failed transfers instead of aborting.
	ModeRetryOnError
)

var modeNames = []struct {
	mode Mode
	name string
}{
	{ModeRandomize, "random"},
	{ModeDirect, "direct"},
	{ModeBuffered, "buffered"},
	{ModeAsync, "aio"},
	{ModeVerifyOnly, "verify-only"},
	{ModeRetryOnError, "retry"},
}

// Has returns true if every flag in `flags` is set.
func (m Mode) Has(flags Mode) bool {
	return m&flags == flags
}

func (m Mode) String() string {
	if m == 0 {
		return "sync"
	}

	names := make([]string, 0, len(modeNames))
	for _, entry := range modeNames {
		if m.Has(entry.mode) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}
