package pipeline

import "strings"

// maxStopLen returns the length, in characters, of the longest stop
// sequence.
func maxStopLen(stop []string) int {
	m := 0
	for _, s := range stop {
		if n := len([]rune(s)); n > m {
			m = n
		}
	}
	return m
}

// detectStop scans a tail window of the buffer for the earliest-starting
// occurrence of any stop sequence, per §4.F. tokenLen is the length (in
// characters) of the token just appended. Returns the global offset of
// the first matched character and true if a stop sequence was found.
func detectStop(buf *RollingBuffer, stop []string, tokenLen int) (int, bool) {
	if len(stop) == 0 {
		return 0, false
	}
	windowLen := maxStopLen(stop) + tokenLen + 1
	window, windowGlobalStart := buf.Tail(windowLen)

	bestLocal := -1
	for _, s := range stop {
		if s == "" {
			continue
		}
		idx := strings.Index(window, s)
		if idx < 0 {
			continue
		}
		if bestLocal < 0 || idx < bestLocal {
			bestLocal = idx
		}
	}
	if bestLocal < 0 {
		return 0, false
	}
	// idx is a byte offset into `window`; window here is built from a
	// []rune conversion round trip in Tail, so rune and byte offsets
	// coincide for ASCII-dominant model output. Convert defensively via
	// rune counting to stay correct for multi-byte text.
	runeIdx := len([]rune(window[:bestLocal]))
	return windowGlobalStart + runeIdx, true
}
