package wgpu

import (
	"testing"

	"github.com/gogpu/rhi/internal/track"
)

// TestBufferRecordQueueUsage checks the per-queue usage track: reads
// accumulate, a write resets the read union, and read-only storage does
// not count as a write even though it carries the storage bit.
func TestBufferRecordQueueUsage(t *testing.T) {
	b := &Buffer{size: 256}

	b.recordQueueUsage(track.QueueTypeGraphics, BufferUsageUniform, ShaderStageVertex, 1)
	b.recordQueueUsage(track.QueueTypeGraphics, BufferUsageIndex, ShaderStageNone, 2)

	gt := &b.usageTrack[track.QueueTypeGraphics]
	if gt.readUsage != BufferUsageUniform|BufferUsageIndex {
		t.Errorf("readUsage = %#x, want uniform|index", gt.readUsage)
	}
	if gt.readStages != ShaderStageVertex {
		t.Errorf("readStages = %#x, want vertex", gt.readStages)
	}
	if gt.lastSerial != 2 || b.lastUsage != 2 {
		t.Errorf("serials = (%d, %d), want (2, 2)", gt.lastSerial, b.lastUsage)
	}

	b.recordQueueUsage(track.QueueTypeGraphics, BufferUsageStorage|BufferUsageReadOnlyStorage, ShaderStageCompute, 3)
	if gt.lastWriteUsage != 0 {
		t.Error("read-only storage recorded as a write")
	}
	if gt.readUsage&BufferUsageStorage == 0 {
		t.Error("read-only storage missing from the read union")
	}

	b.recordQueueUsage(track.QueueTypeGraphics, BufferUsageCopyDst, ShaderStageNone, 4)
	if gt.lastWriteUsage != BufferUsageCopyDst {
		t.Errorf("lastWriteUsage = %#x, want CopyDst", gt.lastWriteUsage)
	}
	if gt.readUsage != 0 || gt.readStages != 0 {
		t.Error("write did not reset the cumulative read union")
	}

	// Other queue types are independent slots.
	b.recordQueueUsage(track.QueueTypeCopy, BufferUsageCopySrc, ShaderStageNone, 5)
	if gt.readUsage != 0 {
		t.Error("copy-queue usage leaked into the graphics track")
	}
	if b.usageTrack[track.QueueTypeCopy].readUsage != BufferUsageCopySrc {
		t.Error("copy-queue read not recorded in its own track")
	}
	if b.lastUsage != 5 {
		t.Errorf("lastUsage = %d, want 5", b.lastUsage)
	}
}
