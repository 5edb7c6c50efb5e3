// Package wgpu provides a safe, ergonomic render hardware interface for Go
// applications.
//
// This package wraps the lower-level hal/ package into a user-friendly API
// for device, resource, and command management over backend-agnostic
// GPU hardware abstraction.
//
// # Quick Start
//
// Import this package and a backend registration package:
//
//	import (
//	    "github.com/gogpu/rhi"
//	    _ "github.com/gogpu/rhi/hal/noop"
//	)
//
//	instance, err := wgpu.CreateInstance(nil)
//	// ...
//
// # Resource Lifecycle
//
// All GPU resources must be explicitly released with Release().
// Release is idempotent. Using a released resource does not panic: calls
// that return an error return ErrReleased, and the others do nothing.
//
// # Backend Registration
//
// Backends self-register via blank imports, one per hal/<backend> package:
//
//	_ "github.com/gogpu/rhi/hal/noop" // always-available software backend
//
// # Thread Safety
//
// Instance, Adapter, and Device are safe for concurrent use.
// Encoders (CommandEncoder, RenderPassEncoder, ComputePassEncoder) are NOT thread-safe.
package wgpu
