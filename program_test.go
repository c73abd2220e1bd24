//go:build !nogpu

package gles

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func linkTestProgram(t *testing.T, rm *ResourceManager) *ShaderProgram {
	t.Helper()
	_, vs := rm.CreateShader(StageVertex)
	vs.SetSource(testVertexSource)
	if !vs.Compile() {
		t.Fatalf("vertex compile failed: %s", vs.InfoLog())
	}
	_, fs := rm.CreateShader(StageFragment)
	fs.SetSource(testFragmentSource)
	if !fs.Compile() {
		t.Fatalf("fragment compile failed: %s", fs.InfoLog())
	}

	_, p := rm.CreateProgram()
	if err := p.AttachShader(vs); err != nil {
		t.Fatalf("AttachShader(vs) failed: %v", err)
	}
	if err := p.AttachShader(fs); err != nil {
		t.Fatalf("AttachShader(fs) failed: %v", err)
	}

	ok, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed fatally: %v", err)
	}
	if !ok {
		t.Fatalf("Link failed: %s", p.InfoLog())
	}
	return p
}

func TestProgramLink(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)

	if !p.IsLinked() {
		t.Fatal("IsLinked false after Link")
	}
	if p.Reflection() == nil {
		t.Fatal("no reflection after Link")
	}
	if p.VertexModule() == nil || p.FragmentModule() == nil {
		t.Error("stage modules missing after Link")
	}
	if p.PipelineLayout() == nil {
		t.Error("pipeline layout missing after Link")
	}
	if p.PipelineCache() == nil {
		t.Error("pipeline cache missing after Link")
	}
	if p.InfoLogLength() != 0 {
		t.Errorf("info log present after successful link: %q", p.InfoLog())
	}
}

func TestProgramLinkRequiresBothStages(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, vs := rm.CreateShader(StageVertex)
	vs.SetSource(testVertexSource)
	if !vs.Compile() {
		t.Fatalf("compile failed: %s", vs.InfoLog())
	}
	_, p := rm.CreateProgram()
	if err := p.AttachShader(vs); err != nil {
		t.Fatalf("AttachShader failed: %v", err)
	}

	ok, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed fatally: %v", err)
	}
	if ok {
		t.Fatal("vertex-only program linked")
	}
	if p.InfoLog() == "" {
		t.Error("no diagnostic for the missing fragment stage")
	}
	if p.IsLinked() {
		t.Error("IsLinked true after failed link")
	}
}

func TestProgramLinkBudgetViolation(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	limits := DefaultLimits()
	limits.MaxVertexUniformVectors = 2 // below the mat4+vec4 interface
	rm, err := NewResourceManager(device, queue, limits)
	if err != nil {
		t.Fatalf("NewResourceManager failed: %v", err)
	}
	defer rm.Release()

	_, vs := rm.CreateShader(StageVertex)
	vs.SetSource(testVertexSource)
	if !vs.Compile() {
		t.Fatalf("compile failed: %s", vs.InfoLog())
	}
	_, fs := rm.CreateShader(StageFragment)
	fs.SetSource(testFragmentSource)
	if !fs.Compile() {
		t.Fatalf("compile failed: %s", fs.InfoLog())
	}
	_, p := rm.CreateProgram()
	if err := p.AttachShader(vs); err != nil {
		t.Fatal(err)
	}
	if err := p.AttachShader(fs); err != nil {
		t.Fatal(err)
	}

	ok, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed fatally: %v", err)
	}
	if ok {
		t.Fatal("budget-violating program linked")
	}
	if p.InfoLog() == "" {
		t.Error("no diagnostic for the budget violation")
	}
}

func TestProgramAttachDetach(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, vs := rm.CreateShader(StageVertex)
	_, vs2 := rm.CreateShader(StageVertex)
	_, p := rm.CreateProgram()

	if err := p.AttachShader(vs); err != nil {
		t.Fatalf("AttachShader failed: %v", err)
	}
	if vs.RefCount() != 1 {
		t.Errorf("RefCount = %d after attach, want 1", vs.RefCount())
	}
	if err := p.AttachShader(vs2); err != ErrStageOccupied {
		t.Errorf("second vertex attach: err = %v, want ErrStageOccupied", err)
	}
	if err := p.DetachShader(vs2); err != ErrNotAttached {
		t.Errorf("detach of unattached: err = %v, want ErrNotAttached", err)
	}
	if err := p.DetachShader(vs); err != nil {
		t.Fatalf("DetachShader failed: %v", err)
	}
	if vs.RefCount() != 0 {
		t.Errorf("RefCount = %d after detach, want 0", vs.RefCount())
	}
}

func TestProgramUniformAccess(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)

	loc := p.UniformLocation("u.tint")
	if loc < 0 {
		t.Fatal("u.tint not active")
	}

	val := make([]byte, 16)
	binary.LittleEndian.PutUint32(val[0:], math.Float32bits(0.5))
	binary.LittleEndian.PutUint32(val[12:], math.Float32bits(1.0))
	if err := p.SetUniformData(loc, val); err != nil {
		t.Fatalf("SetUniformData failed: %v", err)
	}

	got, err := p.UniformData(loc, 16)
	if err != nil {
		t.Fatalf("UniformData failed: %v", err)
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("UniformData = %v, want %v", got, val)
	}

	if err := p.SetUniformData(999, val); err == nil {
		t.Error("write to an unknown location accepted")
	}
}

func TestProgramSamplerUniform(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)

	loc := p.UniformLocation("tex")
	if loc < 0 {
		t.Fatal("sampler tex not active")
	}
	if err := p.SetUniformSampler(loc, 3); err != nil {
		t.Fatalf("SetUniformSampler failed: %v", err)
	}
	if got := p.SamplerUnit(loc); got != 3 {
		t.Errorf("SamplerUnit = %d, want 3", got)
	}
	if err := p.SetUniformSampler(loc, int32(DefaultLimits().MaxTextureUnits)); err == nil {
		t.Error("out-of-range texture unit accepted")
	}
}

func TestProgramUpdateBuiltinUniforms(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)

	// The test interface declares no depth range uniforms; the update must
	// be a silent no-op.
	p.UpdateBuiltinUniforms(0.0, 1.0)
}

func TestProgramValidate(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, p := rm.CreateProgram()
	if p.Validate() {
		t.Error("empty program validated")
	}

	linked := linkTestProgram(t, rm)
	if !linked.Validate() {
		t.Error("linked program failed Validate")
	}
	if !linked.IsValidated() {
		t.Error("IsValidated false after Validate")
	}
}

func TestProgramBinaryRoundTrip(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)
	blob := p.BinaryData()
	if len(blob) == 0 {
		t.Fatal("no binary from a linked program")
	}
	if p.BinaryLength() != len(blob) {
		t.Errorf("BinaryLength = %d, want %d", p.BinaryLength(), len(blob))
	}

	// A second program restores the interface without the front end.
	_, q := rm.CreateProgram()
	if err := q.UsePrecompiledBinary(blob); err != nil {
		t.Fatalf("UsePrecompiledBinary failed: %v", err)
	}
	if !q.IsLinked() || !q.IsPrecompiled() {
		t.Fatal("restored program not linked and precompiled")
	}
	if q.UniformLocation("u.mvp") != p.UniformLocation("u.mvp") {
		t.Error("restored uniform locations differ")
	}
	if q.UniformLocation("tex") != p.UniformLocation("tex") {
		t.Error("restored sampler locations differ")
	}
	if q.Reflection().ActiveAttributes() != p.Reflection().ActiveAttributes() {
		t.Error("restored attribute count differs")
	}
}

func TestProgramBadBinaryRejected(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	_, p := rm.CreateProgram()
	if err := p.UsePrecompiledBinary([]byte{0, 1, 2, 3}); err == nil {
		t.Error("garbage binary accepted")
	}
	if p.IsLinked() {
		t.Error("program linked from garbage")
	}
}

func TestProgramRelinkDiscardsPreviousState(t *testing.T) {
	rm, cleanup := createTestManager(t)
	defer cleanup()

	p := linkTestProgram(t, rm)
	loc := p.UniformLocation("u.tint")
	if err := p.SetUniformData(loc, make([]byte, 16)); err != nil {
		t.Fatalf("SetUniformData failed: %v", err)
	}

	ok, err := p.Link()
	if err != nil {
		t.Fatalf("relink failed fatally: %v", err)
	}
	if !ok {
		t.Fatalf("relink failed: %s", p.InfoLog())
	}
	if !p.IsLinked() {
		t.Error("IsLinked false after relink")
	}
}
