package plugin

import (
	"context"
	"fmt"
	"testing"

	"github.com/osaurus-ai/osaurus/internal/registry"
)

type fakeNative struct {
	manifest  string
	manifestErr error
	invokeFn  func(typ, id, payload string) (string, error)
	closed    bool
}

func (f *fakeNative) getManifest() (string, error) { return f.manifest, f.manifestErr }
func (f *fakeNative) invoke(typ, id, payload string) (string, error) {
	if f.invokeFn != nil {
		return f.invokeFn(typ, id, payload)
	}
	return payload, nil
}
func (f *fakeNative) close() error { f.closed = true; return nil }

func withFakeNative(t *testing.T, fake *fakeNative) {
	t.Helper()
	orig := loadNativeFunc
	loadNativeFunc = func(path string) (nativePlugin, error) { return fake, nil }
	t.Cleanup(func() { loadNativeFunc = orig })
}

const echoManifest = `{"plugin_id":"echo","version":"1.0.0","capabilities":{"tools":[{"id":"echo.say","parameters":{"type":"object"}}]}}`

func TestLoaderLoadRegistersTools(t *testing.T) {
	fake := &fakeNative{manifest: echoManifest}
	withFakeNative(t, fake)

	reg := registry.New()
	loader := NewLoader(reg)
	id, err := loader.Load("/fake/echo.so")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if id != "echo" {
		t.Fatalf("plugin id = %q", id)
	}
	if _, ok := reg.Get("echo.say"); !ok {
		t.Fatal("expected tool echo.say to be registered")
	}
}

func TestLoaderUnloadRemovesTools(t *testing.T) {
	fake := &fakeNative{manifest: echoManifest}
	withFakeNative(t, fake)

	reg := registry.New()
	loader := NewLoader(reg)
	if _, err := loader.Load("/fake/echo.so"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := loader.Unload("echo"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if _, ok := reg.Get("echo.say"); ok {
		t.Fatal("expected tool to be unregistered after unload")
	}
	if !fake.closed {
		t.Fatal("expected native handle to be closed")
	}
}

func TestLoaderInvokeRoutesThroughNative(t *testing.T) {
	fake := &fakeNative{
		manifest: echoManifest,
		invokeFn: func(typ, id, payload string) (string, error) {
			return fmt.Sprintf("%s:%s:%s", typ, id, payload), nil
		},
	}
	withFakeNative(t, fake)

	reg := registry.New()
	loader := NewLoader(reg)
	if _, err := loader.Load("/fake/echo.so"); err != nil {
		t.Fatalf("load: %v", err)
	}
	result, err := reg.Execute(context.Background(), "echo.say", `{"x":1}`, registry.CallerContext{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(result) != `tool:echo.say:{"x":1}` {
		t.Fatalf("result = %q", result)
	}
}

func TestLoaderLoadFailsOnInvalidManifest(t *testing.T) {
	withFakeNative(t, &fakeNative{manifest: "not json"})
	loader := NewLoader(registry.New())
	if _, err := loader.Load("/fake/bad.so"); err == nil {
		t.Fatal("expected an error for invalid manifest JSON")
	}
}

func TestLoaderLoadDuplicatePluginID(t *testing.T) {
	withFakeNative(t, &fakeNative{manifest: echoManifest})
	reg := registry.New()
	loader := NewLoader(reg)
	if _, err := loader.Load("/fake/echo.so"); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := loader.Load("/fake/echo.so"); err == nil {
		t.Fatal("expected duplicate plugin load to fail")
	}
}
