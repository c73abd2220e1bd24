// Package gles implements the resource-lifetime and shader-binding core of
// a GLES2-style driver on top of the gogpu WebGPU HAL.
//
// # Overview
//
// The fixed client API exposes opaque integer names with reference-counted
// lifetime and implicit state (buffers, textures, renderbuffers,
// framebuffers, shaders, programs). The host API underneath
// (github.com/gogpu/wgpu/hal) requires explicit allocation, explicit bind
// group and pipeline layout objects, and shader bytecode compiled ahead of
// use. This package bridges the two models:
//
//   - ResourceManager owns the object tables (one pool per kind), the
//     unified shader/program name namespace, and the deferred-deletion
//     purge lists that reclaim GPU objects only once nothing in the driver
//     still references them.
//   - ShaderProgram owns the link state machine, derives the program's
//     resource interface (uniforms, samplers, vertex attributes) by
//     reflection through github.com/gogpu/naga, and keeps host bind groups
//     and vertex input layouts reconciled with the client-visible state.
//
// # Device Ownership
//
// The core receives a hal.Device and hal.Queue from the host application;
// it never creates one. A single logical rendering context drives one
// serialized stream of mutations and draws, so no internal locking is used
// beyond the logger.
//
// # Deferred Destruction
//
// Client-side deletion only unlinks the object's name. Physical
// destruction happens in ResourceManager.CleanPurgeList, and only for
// objects whose reference count has dropped to zero (programs and shaders:
// once they are free for deletion). Callers must invoke CleanPurgeList at
// a point where previously submitted GPU work can no longer read the freed
// resources, typically a frame boundary.
package gles
