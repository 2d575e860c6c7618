//go:build windows

package plugin

import "fmt"

// ErrUnsupportedPlatform indicates dynamic plugin loading is unavailable.
var ErrUnsupportedPlatform = fmt.Errorf(
	"dynamic plugin loading (dlopen-based shared libraries) is not supported on Windows; " +
		"use MCP servers for cross-platform tool extension instead")

type nativeHandle struct{}

func loadNative(path string) (*nativeHandle, error) {
	return nil, ErrUnsupportedPlatform
}

func (n *nativeHandle) getManifest() (string, error) {
	return "", ErrUnsupportedPlatform
}

func (n *nativeHandle) invoke(typ, id, payload string) (string, error) {
	return "", ErrUnsupportedPlatform
}

func (n *nativeHandle) close() error {
	return ErrUnsupportedPlatform
}
