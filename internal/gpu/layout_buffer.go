package gpu

import (
	"fmt"
	"unsafe"

	"planet-lod/internal/lod"
	"planet-lod/internal/profiling"

	"github.com/go-gl/gl/v4.3-core/gl"
)

const (
	kernelLocalSize = 64
	totalSlots      = lod.MaxNodes * lod.NumFaces

	changesBinding   = 0
	layoutBinding    = 1
	instancesBinding = 2

	modeChanges = 0
	modeResync  = 1
)

var lodKernelSource = fmt.Sprintf(`#version 430 core
layout(local_size_x = %d) in;

struct LayoutChange {
	uint new_node_code;
	uint offset;
	int face_number;
};

layout(std430, binding = %d) readonly buffer Changes { LayoutChange lod_layout_changes[]; };
layout(std430, binding = %d) readonly buffer Layout { uint lod_layout[]; };
layout(std430, binding = %d) writeonly buffer Instances { vec4 instances[]; };

uniform uint mode;
uniform uint num_changes;
uniform uint MAX_NUM_NODES;
uniform float sphere_radius;

const vec3 face_centers[6] = vec3[6](
	vec3(0.0, 0.0, 1.0),
	vec3(0.0, 0.0, -1.0),
	vec3(0.0, 1.0, 0.0),
	vec3(0.0, -1.0, 0.0),
	vec3(1.0, 0.0, 0.0),
	vec3(-1.0, 0.0, 0.0)
);

uint undilate(uint x) {
	x = (x | (x >> 1)) & 0x33333333u;
	x = (x | (x >> 2)) & 0x0f0f0f0fu;
	x = (x | (x >> 4)) & 0x00ff00ffu;
	x = (x | (x >> 8)) & 0x0000ffffu;
	return x;
}

vec3 map_point_to_sphere(vec3 p) {
	vec3 p2 = p * p;
	return vec3(
		p.x * sqrt(1.0 - p2.y / 2.0 - p2.z / 2.0 + p2.y * p2.z / 3.0),
		p.y * sqrt(1.0 - p2.z / 2.0 - p2.x / 2.0 + p2.z * p2.x / 3.0),
		p.z * sqrt(1.0 - p2.x / 2.0 - p2.y / 2.0 + p2.x * p2.y / 3.0));
}

bool root_active(uint face) {
	uint base = face * MAX_NUM_NODES;
	for (uint s = 1u; s < MAX_NUM_NODES; s++) {
		if (lod_layout[base + s] != 0u) {
			return false;
		}
	}
	return true;
}

vec4 node_instance(uint code, uint face, uint offset) {
	if (code == 0u && (offset != 0u || !root_active(face))) {
		return vec4(0.0, 0.0, 0.0, -1.0);
	}
	uint level = code & 0xfu;
	float cells = float(1u << level);
	float u = -1.0 + 2.0 * (float(undilate((code >> 4) & 0x05555555u)) + 0.5) / cells;
	float v = -1.0 + 2.0 * (float(undilate((code >> 5) & 0x05555555u)) + 0.5) / cells;

	vec3 fc = face_centers[face];
	vec3 p;
	if (fc.x != 0.0) {
		p = vec3(fc.x, u, v);
	} else if (fc.y != 0.0) {
		p = vec3(u, fc.y, v);
	} else {
		p = vec3(u, v, fc.z);
	}
	return vec4(normalize(map_point_to_sphere(p)) * sphere_radius, float(level));
}

void main() {
	uint i = gl_GlobalInvocationID.x;
	if (mode == %du) {
		if (i >= MAX_NUM_NODES * 6u) {
			return;
		}
		uint face = i / MAX_NUM_NODES;
		uint offset = i %% MAX_NUM_NODES;
		instances[i] = node_instance(lod_layout[i], face, offset);
		return;
	}

	// Change batches never name slot 0, so each face's root slot is
	// refreshed here.
	if (i < 6u) {
		instances[i * MAX_NUM_NODES] = node_instance(lod_layout[i * MAX_NUM_NODES], i, 0u);
	}
	if (i >= num_changes) {
		return;
	}
	LayoutChange c = lod_layout_changes[i];
	uint face = uint(c.face_number);
	uint slot = face * MAX_NUM_NODES + c.offset;
	instances[slot] = node_instance(c.new_node_code, face, c.offset);
}
`, kernelLocalSize, changesBinding, layoutBinding, instancesBinding, modeResync)

// LayoutBuffer keeps the per-slot instance data of all faces on the GPU and
// patches it from the engine's change batches with a compute kernel.
// Slot i of face f lives at index f*MaxNodes+i and holds
// vec4(centre*radius, level); a negative w marks a free slot.
type LayoutBuffer struct {
	kernel    *Shader
	changes   uint32
	layout    uint32
	instances uint32

	radius float32
}

// NewLayoutBuffer compiles the kernel and allocates the storage buffers.
// A GL 4.3 context must be current.
func NewLayoutBuffer() (*LayoutBuffer, error) {
	kernel, err := NewComputeShader(lodKernelSource)
	if err != nil {
		return nil, fmt.Errorf("lod kernel: %w", err)
	}

	b := &LayoutBuffer{kernel: kernel}

	changeSize := int(unsafe.Sizeof(lod.LayoutChange{}))
	b.changes = newStorageBuffer(totalSlots*changeSize, nil)
	b.layout = newStorageBuffer(totalSlots*4, nil)

	hidden := make([]float32, totalSlots*4)
	for i := 3; i < len(hidden); i += 4 {
		hidden[i] = -1
	}
	b.instances = newStorageBuffer(len(hidden)*4, gl.Ptr(hidden))

	if err := glError("allocating lod buffers"); err != nil {
		b.Dispose()
		return nil, err
	}
	return b, nil
}

func newStorageBuffer(size int, data unsafe.Pointer) uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, data, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return id
}

// UpdateLayout uploads a change batch and the packed layout, then runs the
// kernel over the changed slots. A radius change rebuilds every slot
// instead, since all stored positions are scaled by it.
func (b *LayoutBuffer) UpdateLayout(changes []lod.LayoutChange, layout []lod.Code, radius float32) {
	defer profiling.Track("gpu.UpdateLayout")()

	b.uploadLayout(layout)
	if radius != b.radius {
		b.dispatch(modeResync, totalSlots, radius)
		return
	}
	if len(changes) == 0 {
		return
	}

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.changes)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(changes)*int(unsafe.Sizeof(changes[0])), gl.Ptr(changes))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	b.dispatch(modeChanges, len(changes), radius)
}

// Resync rebuilds every slot from the packed layout, for use after the GPU
// resources were recreated.
func (b *LayoutBuffer) Resync(layout []lod.Code, radius float32) {
	b.uploadLayout(layout)
	b.dispatch(modeResync, totalSlots, radius)
}

func (b *LayoutBuffer) uploadLayout(layout []lod.Code) {
	if len(layout) != totalSlots {
		panic(fmt.Sprintf("gpu: packed layout has %d slots, want %d", len(layout), totalSlots))
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.layout)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(layout)*4, gl.Ptr(layout))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
}

func (b *LayoutBuffer) dispatch(mode uint32, count int, radius float32) {
	b.kernel.Use()
	b.kernel.SetUint("mode", mode)
	b.kernel.SetUint("num_changes", uint32(count))
	b.kernel.SetUint("MAX_NUM_NODES", lod.MaxNodes)
	b.kernel.SetFloat("sphere_radius", radius)

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, changesBinding, b.changes)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, layoutBinding, b.layout)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, instancesBinding, b.instances)

	threads := count
	if mode == modeChanges {
		// The first NumFaces invocations also refresh the root slots.
		threads = max(count, lod.NumFaces)
	}
	gl.DispatchCompute(uint32((threads+kernelLocalSize-1)/kernelLocalSize), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT)

	b.radius = radius
}

// InstanceBuffer returns the buffer holding one vec4 per slot.
func (b *LayoutBuffer) InstanceBuffer() uint32 {
	return b.instances
}

// Dispose releases the kernel and all buffers.
func (b *LayoutBuffer) Dispose() {
	if b.kernel != nil {
		b.kernel.Delete()
		b.kernel = nil
	}
	buffers := []uint32{b.changes, b.layout, b.instances}
	gl.DeleteBuffers(int32(len(buffers)), &buffers[0])
	b.changes, b.layout, b.instances = 0, 0, 0
}

func glError(label string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error %s: 0x%x", label, code)
	}
	return nil
}
