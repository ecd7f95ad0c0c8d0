package gpu

import (
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const pointVertexShader = `#version 430 core
layout(location = 0) in vec4 instance;
uniform mat4 view;
uniform mat4 proj;
out float level;
void main() {
	level = instance.w;
	if (instance.w < 0.0) {
		// free slot: push outside the clip volume
		gl_Position = vec4(2.0, 2.0, 2.0, 1.0);
		gl_PointSize = 0.0;
		return;
	}
	gl_Position = proj * view * vec4(instance.xyz, 1.0);
	gl_PointSize = max(2.0, 14.0 - instance.w);
}
`

const pointFragmentShader = `#version 430 core
in float level;
out vec4 FragColor;
void main() {
	float t = clamp(level / 14.0, 0.0, 1.0);
	FragColor = vec4(mix(vec3(0.2, 0.5, 1.0), vec3(1.0, 0.4, 0.1), t), 1.0);
}
`

// PointRenderer draws every slot of a LayoutBuffer as a point at its node
// centre, coloured by level.
type PointRenderer struct {
	shader *Shader
	vao    uint32
	source *LayoutBuffer
}

// NewPointRenderer binds the instance buffer of source as vertex input.
func NewPointRenderer(source *LayoutBuffer) (*PointRenderer, error) {
	shader, err := NewShader(pointVertexShader, pointFragmentShader)
	if err != nil {
		return nil, err
	}

	r := &PointRenderer{shader: shader, source: source}
	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, source.InstanceBuffer())
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 4, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	return r, nil
}

// Render draws all slots.
func (r *PointRenderer) Render(view, proj mgl32.Mat4) {
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	r.shader.Use()
	r.shader.SetMatrix4("view", view)
	r.shader.SetMatrix4("proj", proj)

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.POINTS, 0, totalSlots)
	gl.BindVertexArray(0)
}

// Dispose releases the program and vertex array.
func (r *PointRenderer) Dispose() {
	r.shader.Delete()
	gl.DeleteVertexArrays(1, &r.vao)
}
