// Package router implements path normalization, CORS, and method dispatch
// for the HTTP surface (spec §4.B), fronting the dialect codecs.
package router

import "strings"

// stripPrefixes is checked longest-first so "/v1/api/chat" strips the
// whole "/v1/api" segment rather than stopping at "/v1".
var stripPrefixes = []string{"/v1/api", "/api", "/v1"}

// Normalize strips the longest matching routing prefix from path,
// leaving a canonical path. normalize(normalize(p)) == normalize(p) for
// every path this gateway actually serves (a canonicalized path never
// starts with one of the stripped prefixes again).
func Normalize(path string) string {
	for _, prefix := range stripPrefixes {
		if path == prefix {
			return "/"
		}
		if strings.HasPrefix(path, prefix+"/") {
			return path[len(prefix):]
		}
	}
	return path
}
