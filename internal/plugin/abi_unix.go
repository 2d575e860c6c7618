//go:build !windows

package plugin

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void* osr_ctx;
typedef void (*osr_free_string)(const char*);
typedef osr_ctx (*osr_init)(void);
typedef void (*osr_destroy)(osr_ctx);
typedef const char* (*osr_get_manifest)(osr_ctx);
typedef const char* (*osr_invoke)(osr_ctx, const char*, const char*, const char*);

typedef struct {
	osr_free_string free_string;
	osr_init        init;
	osr_destroy     destroy;
	osr_get_manifest get_manifest;
	osr_invoke      invoke;
} osr_plugin_api;

typedef const void* (*osr_entry_fn)(void);

static void* osr_dlopen(const char* path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}

static void* osr_dlsym(void* handle, const char* name) {
	return dlsym(handle, name);
}

static int osr_dlclose(void* handle) {
	return dlclose(handle);
}

static const char* osr_dlerror(void) {
	return dlerror();
}

static const osr_plugin_api* osr_call_entry(void* entry_fn) {
	osr_entry_fn f = (osr_entry_fn)entry_fn;
	return (const osr_plugin_api*)f();
}

static osr_ctx osr_call_init(const osr_plugin_api* api) {
	return api->init();
}

static void osr_call_destroy(const osr_plugin_api* api, osr_ctx ctx) {
	api->destroy(ctx);
}

static const char* osr_call_get_manifest(const osr_plugin_api* api, osr_ctx ctx) {
	return api->get_manifest(ctx);
}

static const char* osr_call_invoke(const osr_plugin_api* api, osr_ctx ctx, const char* type, const char* id, const char* payload) {
	return api->invoke(ctx, type, id, payload);
}

static void osr_call_free_string(const osr_plugin_api* api, const char* s) {
	if (s != NULL) {
		api->free_string(s);
	}
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const entrySymbol = "osaurus_plugin_entry"

// nativeHandle is the unsafe surface this file alone is allowed to touch.
// Everything above loader.go deals only in Go types.
type nativeHandle struct {
	handle unsafe.Pointer
	api    *C.osr_plugin_api
	ctx    C.osr_ctx
}

func dlOpen(path string) (unsafe.Pointer, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	h := C.osr_dlopen(cPath)
	if h == nil {
		return nil, fmt.Errorf("dlopen %s: %s", path, C.GoString(C.osr_dlerror()))
	}
	return h, nil
}

func dlClose(handle unsafe.Pointer) error {
	if C.osr_dlclose(handle) != 0 {
		return fmt.Errorf("dlclose: %s", C.GoString(C.osr_dlerror()))
	}
	return nil
}

func dlSymEntry(handle unsafe.Pointer) (unsafe.Pointer, error) {
	cName := C.CString(entrySymbol)
	defer C.free(unsafe.Pointer(cName))
	sym := C.osr_dlsym(handle, cName)
	if sym == nil {
		return nil, fmt.Errorf("symbol %s not found: %s", entrySymbol, C.GoString(C.osr_dlerror()))
	}
	return sym, nil
}

func loadNative(path string) (*nativeHandle, error) {
	handle, err := dlOpen(path)
	if err != nil {
		return nil, err
	}
	entryFn, err := dlSymEntry(handle)
	if err != nil {
		C.osr_dlclose(handle)
		return nil, err
	}
	api := C.osr_call_entry(entryFn)
	if api == nil {
		C.osr_dlclose(handle)
		return nil, fmt.Errorf("%s returned a null vtable", entrySymbol)
	}
	ctx := C.osr_call_init(api)
	if ctx == nil {
		C.osr_dlclose(handle)
		return nil, fmt.Errorf("plugin init() returned a null context")
	}
	return &nativeHandle{handle: handle, api: api, ctx: ctx}, nil
}

func (n *nativeHandle) getManifest() (string, error) {
	cStr := C.osr_call_get_manifest(n.api, n.ctx)
	if cStr == nil {
		return "", fmt.Errorf("get_manifest returned null")
	}
	defer C.osr_call_free_string(n.api, cStr)
	return C.GoString(cStr), nil
}

func (n *nativeHandle) invoke(typ, id, payload string) (string, error) {
	cType := C.CString(typ)
	defer C.free(unsafe.Pointer(cType))
	cID := C.CString(id)
	defer C.free(unsafe.Pointer(cID))
	cPayload := C.CString(payload)
	defer C.free(unsafe.Pointer(cPayload))

	result := C.osr_call_invoke(n.api, n.ctx, cType, cID, cPayload)
	if result == nil {
		return "", fmt.Errorf("invoke(%s, %s) returned null", typ, id)
	}
	defer C.osr_call_free_string(n.api, result)
	return C.GoString(result), nil
}

func (n *nativeHandle) close() error {
	C.osr_call_destroy(n.api, n.ctx)
	return dlClose(n.handle)
}
