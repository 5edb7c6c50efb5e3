package wgpu

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/internal/track"
)

// Texture represents a GPU texture.
type Texture struct {
	*track.TrackingData
	hal         hal.Texture
	device      *Device
	format      TextureFormat
	size        Extent3D
	mipLevels   uint32
	arrayLayers uint32
	views       []*TextureView
	released    bool
}

// Format returns the texture format.
func (t *Texture) Format() TextureFormat { return t.format }

// Aspects reports which subresource planes this texture's format has.
// Satisfies internal/track's TextureResource constraint.
func (t *Texture) Aspects() track.Aspect {
	switch t.format {
	case TextureFormatDepth24Plus, TextureFormatDepth32Float:
		return track.AspectDepth
	default:
		return track.AspectColor
	}
}

// LayerCount returns the texture's array layer count.
func (t *Texture) LayerCount() uint32 { return t.arrayLayers }

// MipCount returns the texture's mip level count.
func (t *Texture) MipCount() uint32 { return t.mipLevels }

// Release destroys the texture and every view created from it.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	for _, v := range t.views {
		v.Release()
	}
	t.views = nil
	t.TrackingData.Release()
	t.device.lists.textures.untrack(t)
	halDevice := t.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyTexture(t.hal)
	}
}

// TextureView represents a view into a texture.
type TextureView struct {
	*track.TrackingData
	hal      hal.TextureView
	device   *Device
	texture  *Texture
	rng      track.SubresourceRange
	released bool
}

// Texture returns the texture this view was created from. Satisfies
// internal/track's TextureViewResource constraint.
func (v *TextureView) Texture() *Texture { return v.texture }

// SubresourceRange returns the subresource range this view covers.
// Satisfies internal/track's TextureViewResource constraint.
func (v *TextureView) SubresourceRange() track.SubresourceRange { return v.rng }

// Release destroys the texture view.
func (v *TextureView) Release() {
	if v.released {
		return
	}
	v.released = true
	v.TrackingData.Release()
	halDevice := v.device.halDevice()
	if halDevice != nil {
		halDevice.DestroyTextureView(v.hal)
	}
}
