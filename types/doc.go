// Package types defines the backend-agnostic value types shared by the
// rhi package and its hal backend contract: descriptors, enums, and
// small structs with no behavior of their own.
//
//   - Backend and adapter types (Backend, AdapterInfo)
//   - Resource descriptors (BufferDescriptor, TextureDescriptor, SamplerDescriptor)
//   - Bind set types (BindSetLayoutDescriptor, BindSetDescriptor, PipelineLayoutDescriptor)
//   - Pass types (RenderPassDescriptor, RenderPassColorAttachment)
//   - Enums and constants (TextureFormat, CompareFunction, Limits, etc.)
//
// None of these types hold a reference to a backend resource; rhi and hal
// translate between them and their own handle/resource types.
package types
