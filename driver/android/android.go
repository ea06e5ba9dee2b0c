// Copyright 2025 Agus Maps Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build android

// Package android bridges render-goroutine events into the managed
// runtime through JNI. The render goroutine is never a Java thread,
// so every dispatch attaches to the VM if needed and detaches again
// after the call; the callback object is held as a global reference
// released on teardown. A bridge with no registered callback silently
// drops events.
package android

/*
#include <jni.h>
#include <stdlib.h>

static jint ms_get_env(JavaVM *vm, JNIEnv **env) {
	return (*vm)->GetEnv(vm, (void **)env, JNI_VERSION_1_6);
}
static jint ms_attach(JavaVM *vm, JNIEnv **env) {
	return (*vm)->AttachCurrentThread(vm, env, NULL);
}
static jint ms_detach(JavaVM *vm) {
	return (*vm)->DetachCurrentThread(vm);
}
static jint ms_get_java_vm(JNIEnv *env, JavaVM **vm) {
	return (*env)->GetJavaVM(env, vm);
}
static jobject ms_new_global_ref(JNIEnv *env, jobject obj) {
	return (*env)->NewGlobalRef(env, obj);
}
static void ms_delete_global_ref(JNIEnv *env, jobject obj) {
	(*env)->DeleteGlobalRef(env, obj);
}
static jclass ms_get_object_class(JNIEnv *env, jobject obj) {
	return (*env)->GetObjectClass(env, obj);
}
static jmethodID ms_get_method_id(JNIEnv *env, jclass cls, const char *name, const char *sig) {
	return (*env)->GetMethodID(env, cls, name, sig);
}
static void ms_call_void_iii(JNIEnv *env, jobject obj, jmethodID mid, jint a, jint b, jint c) {
	(*env)->CallVoidMethod(env, obj, mid, a, b, c);
}
static jboolean ms_clear_exception(JNIEnv *env) {
	jboolean thrown = (*env)->ExceptionCheck(env);
	if (thrown) {
		(*env)->ExceptionClear(env);
	}
	return thrown;
}
*/
import "C"

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/agusmaps/mapsurface/surface"
)

// Bridge is the JNI implementation of [surface.Sink]. One bridge
// serves the process; the managed side registers its callback object
// through the exported native methods below.
type Bridge struct {
	mu      sync.Mutex
	vm      *C.JavaVM
	obj     C.jobject
	onEvent C.jmethodID
}

// TheBridge is the process bridge the exported native methods bind
// to. Surfaces use it as their sink on this platform.
var TheBridge = &Bridge{}

// register resolves void onMapEvent(int, int, int) on the callback
// object and pins the object with a global reference.
func (b *Bridge) register(env *C.JNIEnv, vm *C.JavaVM, obj C.jobject) {
	name := C.CString("onMapEvent")
	sig := C.CString("(III)V")
	defer C.free(unsafe.Pointer(name))
	defer C.free(unsafe.Pointer(sig))

	cls := C.ms_get_object_class(env, obj)
	mid := C.ms_get_method_id(env, cls, name, sig)
	if C.ms_clear_exception(env) == C.JNI_TRUE || mid == nil {
		slog.Error("android: callback object has no onMapEvent(III)V, bridge disabled")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.obj != nil {
		C.ms_delete_global_ref(env, b.obj)
	}
	b.vm = vm
	b.obj = C.ms_new_global_ref(env, obj)
	b.onEvent = mid
	slog.Info("android: frame callback registered")
}

// unregister drops the global reference; later dispatches become
// no-ops without error.
func (b *Bridge) unregister(env *C.JNIEnv) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.obj != nil {
		C.ms_delete_global_ref(env, b.obj)
		b.obj = nil
	}
	b.onEvent = nil
	slog.Info("android: frame callback unregistered")
}

// Registered reports whether a callback object is pinned.
func (b *Bridge) Registered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.obj != nil
}

// Dispatch marshals the event into the managed runtime. Called from
// the render goroutine; attaches the thread to the VM when it is not
// already a Java thread and detaches afterward so the VM never
// accumulates native threads. A pending Java exception is cleared
// rather than propagated into the render loop.
func (b *Bridge) Dispatch(ev surface.Event) {
	b.mu.Lock()
	vm, obj, mid := b.vm, b.obj, b.onEvent
	b.mu.Unlock()
	if vm == nil || obj == nil || mid == nil {
		return
	}

	var env *C.JNIEnv
	attached := false
	switch C.ms_get_env(vm, &env) {
	case C.JNI_OK:
	case C.JNI_EDETACHED:
		if C.ms_attach(vm, &env) != C.JNI_OK {
			slog.Error("android: AttachCurrentThread failed, event dropped", "kind", ev.Kind)
			return
		}
		attached = true
	default:
		return
	}

	C.ms_call_void_iii(env, obj, mid, C.jint(ev.Kind), C.jint(ev.Arg0), C.jint(ev.Arg1))
	C.ms_clear_exception(env)

	if attached {
		C.ms_detach(vm)
	}
}

func vmOf(env *C.JNIEnv) *C.JavaVM {
	var vm *C.JavaVM
	if C.ms_get_java_vm(env, &vm) != C.JNI_OK {
		return nil
	}
	return vm
}

//export Java_app_agusmaps_mapsurface_MapSurface_nativeInitFrameCallback
func Java_app_agusmaps_mapsurface_MapSurface_nativeInitFrameCallback(env *C.JNIEnv, obj C.jobject) {
	vm := vmOf(env)
	if vm == nil {
		slog.Error("android: GetJavaVM failed, bridge disabled")
		return
	}
	TheBridge.register(env, vm, obj)
}

//export Java_app_agusmaps_mapsurface_MapSurface_nativeCleanupFrameCallback
func Java_app_agusmaps_mapsurface_MapSurface_nativeCleanupFrameCallback(env *C.JNIEnv, obj C.jobject) {
	TheBridge.unregister(env)
}
