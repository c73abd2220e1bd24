package gles

import (
	"strings"
	"testing"
)

const testVertexSource = `
struct Uniforms {
    mvp: mat4x4<f32>,
    tint: vec4<f32>,
}
@group(0) @binding(0) var<uniform> u: Uniforms;

struct VertexInput {
    @location(0) pos: vec3<f32>,
    @location(1) uv: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.pos = u.mvp * vec4<f32>(in.pos, 1.0);
    out.uv = in.uv;
    return out;
}
`

const testFragmentSource = `
@group(0) @binding(1) var smp: sampler;
@group(0) @binding(2) var tex: texture_2d<f32>;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(tex, smp, uv);
}
`

func TestShaderCompile(t *testing.T) {
	sh := NewShader(StageVertex)
	sh.SetSource(testVertexSource)

	if !sh.Compile() {
		t.Fatalf("compile failed: %s", sh.InfoLog())
	}
	if !sh.IsCompiled() {
		t.Error("IsCompiled false after successful compile")
	}
	if sh.IR() == nil {
		t.Error("no IR module after compile")
	}
	if len(sh.Words()) == 0 {
		t.Error("no SPIR-V words after compile")
	}
	if sh.InfoLogLength() != 0 {
		t.Errorf("InfoLogLength = %d after success, want 0", sh.InfoLogLength())
	}
}

func TestShaderCompileErrorProducesLog(t *testing.T) {
	sh := NewShader(StageFragment)
	sh.SetSource("this is not a shader")

	if sh.Compile() {
		t.Fatal("garbage source compiled")
	}
	if sh.IsCompiled() {
		t.Error("IsCompiled true after failed compile")
	}
	if sh.InfoLog() == "" {
		t.Error("no diagnostic after failed compile")
	}
	if sh.InfoLogLength() != len(sh.InfoLog())+1 {
		t.Errorf("InfoLogLength = %d, want %d", sh.InfoLogLength(), len(sh.InfoLog())+1)
	}
}

func TestShaderSetSourceInvalidates(t *testing.T) {
	sh := NewShader(StageVertex)
	sh.SetSource(testVertexSource)
	if !sh.Compile() {
		t.Fatalf("compile failed: %s", sh.InfoLog())
	}

	sh.SetSource(strings.Replace(testVertexSource, "1.0", "2.0", 1))
	if sh.IsCompiled() {
		t.Error("stale compiled state after SetSource")
	}
	if sh.IR() != nil || sh.Words() != nil {
		t.Error("stale compile artifacts after SetSource")
	}
}

func TestShaderFreeForDeletion(t *testing.T) {
	sh := NewShader(StageVertex)
	if sh.FreeForDeletion() {
		t.Error("undeleted shader free for deletion")
	}

	sh.Ref() // attached to a program
	sh.MarkForDeletion()
	if sh.FreeForDeletion() {
		t.Error("attached shader free for deletion")
	}

	sh.Unref()
	if !sh.FreeForDeletion() {
		t.Error("marked, detached shader not free for deletion")
	}
}

func TestSpirvWords(t *testing.T) {
	words := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x01, 0x00, 0x00})
	if len(words) != 2 {
		t.Fatalf("len = %d, want 2", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("words[0] = %#x, want SPIR-V magic 0x07230203", words[0])
	}
	if words[1] != 0x00000100 {
		t.Errorf("words[1] = %#x, want 0x00000100", words[1])
	}
}
