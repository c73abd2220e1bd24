package gles

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// linkState tracks how far a program has progressed toward being drawable.
type linkState uint8

const (
	// stateUnlinked: shaders may be attached, nothing derived yet.
	stateUnlinked linkState = iota
	// stateValidated: the last Validate pass found a usable interface.
	stateValidated
	// stateLinked: reflection, modules and binding objects exist.
	stateLinked
)

// ShaderProgram is a linked pair of shader stages plus everything derived
// from them: the reflected resource interface, uniform staging, the host
// binding objects and the per-draw vertex and index state.
type ShaderProgram struct {
	refCounted

	rm     *ResourceManager
	device hal.Device
	queue  hal.Queue

	vert *Shader
	frag *Shader

	state       linkState
	precompiled bool
	infoLog     string

	// markedFree and current drive deferred destruction: a deleted program
	// survives on the purge lists while it is the bound program.
	markedFree bool
	current    bool

	refl     *ShaderReflection
	uniforms *uniformStore
	binding  bindingState
	vertex   vertexInputState
	cache    *PipelineCache

	vsModule hal.ShaderModule
	fsModule hal.ShaderModule
	vsWords  []uint32
	fsWords  []uint32

	activeIndex indexDraw

	// lastViews records the texture objects the current bind group
	// references, for identity comparison during descriptor sync.
	lastViews []*Texture

	// updateSets marks the bind group stale (resources changed identity);
	// updateData marks uniform contents stale (values changed). A data
	// flush that grows a buffer escalates to updateSets.
	updateSets bool
	updateData bool
}

// NewShaderProgram creates an unlinked program owned by the manager.
func NewShaderProgram(rm *ResourceManager) *ShaderProgram {
	return &ShaderProgram{
		rm:     rm,
		device: rm.device,
		queue:  rm.queue,
	}
}

// AttachShader attaches a compiled or to-be-compiled shader to its stage
// slot. Each stage holds at most one shader.
func (p *ShaderProgram) AttachShader(sh *Shader) error {
	switch sh.Stage() {
	case StageVertex:
		if p.vert != nil {
			return ErrStageOccupied
		}
		p.vert = sh
	case StageFragment:
		if p.frag != nil {
			return ErrStageOccupied
		}
		p.frag = sh
	default:
		return fmt.Errorf("gles: unknown shader stage %d", sh.Stage())
	}
	sh.Ref()
	return nil
}

// DetachShader releases one attached shader. The linked state survives a
// detach; only the attachment list changes.
func (p *ShaderProgram) DetachShader(sh *Shader) error {
	switch {
	case p.vert == sh:
		p.vert = nil
	case p.frag == sh:
		p.frag = nil
	default:
		return ErrNotAttached
	}
	sh.Unref()
	return nil
}

// DetachShaders releases both stage slots. The purge pass calls this before
// destroying a program so its shaders can become free.
func (p *ShaderProgram) DetachShaders() {
	if p.vert != nil {
		p.vert.Unref()
		p.vert = nil
	}
	if p.frag != nil {
		p.frag.Unref()
		p.frag = nil
	}
}

// AttachedShader returns the shader attached at the stage, nil when empty.
func (p *ShaderProgram) AttachedShader(stage ShaderStage) *Shader {
	if stage == StageVertex {
		return p.vert
	}
	return p.frag
}

// IsLinked reports whether the program holds a usable linked interface.
func (p *ShaderProgram) IsLinked() bool { return p.state >= stateLinked }

// IsPrecompiled reports whether the interface came from a program binary
// rather than the front end.
func (p *ShaderProgram) IsPrecompiled() bool { return p.precompiled }

// Link derives the program interface from the attached shaders. A false
// result with nil error is a client linking failure (missing or uncompiled
// stages, budget violations); the diagnostic lands in the info log and any
// previous linked state is discarded. A non-nil error is a host failure and
// fatal for the context.
func (p *ShaderProgram) Link() (bool, error) {
	p.releaseLinkedState()
	p.state = stateUnlinked
	p.precompiled = false
	p.infoLog = ""

	if p.vert == nil || p.frag == nil {
		p.infoLog = "link failed: program needs a vertex and a fragment shader attached"
		return false, nil
	}
	if !p.vert.IsCompiled() || !p.frag.IsCompiled() {
		p.infoLog = "link failed: attached shaders are not compiled"
		return false, nil
	}

	refl, err := buildReflection(p.vert.IR(), p.frag.IR())
	if err != nil {
		p.infoLog = fmt.Sprintf("link failed: %v", err)
		return false, nil
	}
	if ok := p.checkBudgets(refl); !ok {
		return false, nil
	}

	if err := p.installInterface(refl, p.vert.Words(), p.frag.Words()); err != nil {
		return false, err
	}
	p.cache = NewPipelineCache()
	p.state = stateLinked

	Logger().Info("program linked",
		"attributes", len(refl.Attributes),
		"uniforms", len(refl.Uniforms),
		"samplers", len(refl.Samplers),
		"blocks", len(refl.Blocks))
	return true, nil
}

// checkBudgets enforces the context limits at link time. Violations are
// client errors reported through the info log.
func (p *ShaderProgram) checkBudgets(refl *ShaderReflection) bool {
	limits := p.rm.limits

	locations := 0
	for i := range refl.Attributes {
		locations += int(refl.Attributes[i].Type.Locations())
	}
	if locations > limits.MaxVertexAttribs {
		p.infoLog = fmt.Sprintf("link failed: %d attribute locations exceed the limit of %d",
			locations, limits.MaxVertexAttribs)
		return false
	}

	if n := refl.UniformVectors(StageVertex); n > limits.MaxVertexUniformVectors {
		p.infoLog = fmt.Sprintf("link failed: %d vertex uniform vectors exceed the limit of %d",
			n, limits.MaxVertexUniformVectors)
		return false
	}
	if n := refl.UniformVectors(StageFragment); n > limits.MaxFragmentUniformVectors {
		p.infoLog = fmt.Sprintf("link failed: %d fragment uniform vectors exceed the limit of %d",
			n, limits.MaxFragmentUniformVectors)
		return false
	}
	return true
}

// installInterface builds the device-facing state shared by Link and the
// precompiled binary path: stage modules, uniform staging and the binding
// objects.
func (p *ShaderProgram) installInterface(refl *ShaderReflection, vsWords, fsWords []uint32) error {
	vsModule, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "program_vs",
		Source: hal.ShaderSource{SPIRV: vsWords},
	})
	if err != nil {
		return fmt.Errorf("gles: vertex module creation failed: %w", err)
	}
	fsModule, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "program_fs",
		Source: hal.ShaderSource{SPIRV: fsWords},
	})
	if err != nil {
		p.device.DestroyShaderModule(vsModule)
		return fmt.Errorf("gles: fragment module creation failed: %w", err)
	}

	p.refl = refl
	p.vsModule = vsModule
	p.fsModule = fsModule
	p.vsWords = vsWords
	p.fsWords = fsWords
	p.uniforms = newUniformStore(p.device, p.queue, refl)
	p.vertex.reset()

	if err := p.allocateBindingObjects(); err != nil {
		return err
	}
	p.updateSets = true
	p.updateData = len(refl.Blocks) > 0
	return nil
}

// UsePrecompiledBinary restores a program interface from a binary produced
// by BinaryData, skipping the front end entirely.
func (p *ShaderProgram) UsePrecompiledBinary(data []byte) error {
	refl, consumed, err := decodeReflection(data)
	if err != nil {
		return err
	}

	r := binaryReader{data: data[consumed:]}
	vsWords := r.words()
	fsWords := r.words()
	cacheBlob := r.rest()
	if r.err != nil || len(vsWords) == 0 || len(fsWords) == 0 {
		return ErrBadBinary
	}
	cache, err := LoadPipelineCache(cacheBlob)
	if err != nil {
		return err
	}

	p.releaseLinkedState()
	p.infoLog = ""
	if err := p.installInterface(refl, vsWords, fsWords); err != nil {
		return err
	}
	p.cache = cache
	p.state = stateLinked
	p.precompiled = true
	return nil
}

// BinaryLength reports the size of the binary BinaryData would produce,
// zero for unlinked programs.
func (p *ShaderProgram) BinaryLength() int {
	if !p.IsLinked() {
		return 0
	}
	return len(p.BinaryData())
}

// BinaryData serializes the linked interface, stage bytecode and pipeline
// registry. Returns nil for unlinked programs.
func (p *ShaderProgram) BinaryData() []byte {
	if !p.IsLinked() {
		return nil
	}
	out := encodeReflection(p.refl)
	out = appendWords(out, p.vsWords)
	out = appendWords(out, p.fsWords)
	return append(out, p.cache.Data()...)
}

// Reflection exposes the linked interface; nil before a successful link.
func (p *ShaderProgram) Reflection() *ShaderReflection { return p.refl }

// PipelineCache exposes the program's pipeline registry; nil before link.
func (p *ShaderProgram) PipelineCache() *PipelineCache { return p.cache }

// VertexModule exposes the device vertex stage module.
func (p *ShaderProgram) VertexModule() hal.ShaderModule { return p.vsModule }

// FragmentModule exposes the device fragment stage module.
func (p *ShaderProgram) FragmentModule() hal.ShaderModule { return p.fsModule }

// UniformLocation resolves a uniform or sampler name, -1 when inactive or
// unlinked.
func (p *ShaderProgram) UniformLocation(name string) int32 {
	if !p.IsLinked() {
		return -1
	}
	return p.refl.UniformLocation(name)
}

// AttributeLocation resolves an attribute name, -1 when inactive or
// unlinked.
func (p *ShaderProgram) AttributeLocation(name string) int32 {
	if !p.IsLinked() {
		return -1
	}
	return p.refl.AttributeLocation(name)
}

// SetUniformData writes raw uniform bytes at a location and marks the
// uniform data stale.
func (p *ShaderProgram) SetUniformData(loc int32, data []byte) error {
	if !p.IsLinked() {
		return ErrNotLinked
	}
	if err := p.uniforms.Set(loc, data); err != nil {
		return err
	}
	p.updateData = true
	return nil
}

// UniformData reads back size bytes of a uniform's staged value.
func (p *ShaderProgram) UniformData(loc int32, size uint32) ([]byte, error) {
	if !p.IsLinked() {
		return nil, ErrNotLinked
	}
	return p.uniforms.Get(loc, size)
}

// SetUniformSampler assigns a texture unit to a sampler location. The bind
// group references a different texture afterwards, so the sets go stale.
func (p *ShaderProgram) SetUniformSampler(loc, unit int32) error {
	if !p.IsLinked() {
		return ErrNotLinked
	}
	if unit < 0 || int(unit) >= p.rm.limits.MaxTextureUnits {
		return fmt.Errorf("gles: texture unit %d out of range", unit)
	}
	if err := p.uniforms.SetSamplerUnit(loc, unit); err != nil {
		return err
	}
	p.updateSets = true
	return nil
}

// SamplerUnit reads back the texture unit assigned to a sampler location.
func (p *ShaderProgram) SamplerUnit(loc int32) int32 {
	if p.uniforms == nil {
		return 0
	}
	return p.uniforms.SamplerUnit(loc)
}

// Validate checks whether the program could execute in the current state
// and records the result for IsValidated. The fixed API defines this as a
// best-effort diagnostic pass.
func (p *ShaderProgram) Validate() bool {
	if p.state >= stateLinked {
		return true
	}
	if p.state == stateUnlinked && p.vert != nil && p.frag != nil &&
		p.vert.IsCompiled() && p.frag.IsCompiled() {
		p.state = stateValidated
		return true
	}
	return false
}

// IsValidated reports whether the program passed its last Validate.
func (p *ShaderProgram) IsValidated() bool { return p.state >= stateValidated }

// UpdateBuiltinUniforms feeds the driver-maintained depth range uniforms,
// written only when the shader declares them.
func (p *ShaderProgram) UpdateBuiltinUniforms(near, far float32) {
	if !p.IsLinked() {
		return
	}
	set := func(name string, v float32) {
		loc := p.refl.UniformLocation(name)
		if loc < 0 {
			return
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if err := p.uniforms.Set(loc, buf[:]); err == nil {
			p.updateData = true
		}
	}
	set("depthRange.near", near)
	set("depthRange.far", far)
	set("depthRange.diff", far-near)
}

// PrepareVertexBuffers derives the vertex fetch state for a draw of
// vertCount vertices starting at firstVertex.
func (p *ShaderProgram) PrepareVertexBuffers(firstVertex, vertCount uint32, lineLoop bool) error {
	if !p.IsLinked() {
		return ErrNotLinked
	}
	return prepareVertexInput(p.rm, p.refl, &p.vertex, firstVertex, vertCount, lineLoop)
}

// VertexLayouts exports the derived host vertex buffer layouts, parallel
// to VertexBuffers.
func (p *ShaderProgram) VertexLayouts() []gputypes.VertexBufferLayout {
	return p.vertex.Layouts()
}

// VertexBuffers exports the device buffer bound at each derived slot.
func (p *ShaderProgram) VertexBuffers() []hal.Buffer {
	return p.vertex.Buffers()
}

// PrepareIndexBuffer resolves the index source for an indexed draw; see
// prepareIndexBuffer for the offset and line-loop semantics.
func (p *ShaderProgram) PrepareIndexBuffer(count uint32, typ IndexType, offset uint64, clientData []byte, bound *Buffer, lineLoop bool) (indexDraw, error) {
	if !p.IsLinked() {
		return indexDraw{}, ErrNotLinked
	}
	draw, err := prepareIndexBuffer(p.rm, count, typ, offset, clientData, bound, lineLoop)
	if err != nil {
		return indexDraw{}, err
	}
	p.activeIndex = draw
	return draw, nil
}

// ActiveIndexBuffer returns the index state of the last prepared indexed
// draw.
func (p *ShaderProgram) ActiveIndexBuffer() indexDraw { return p.activeIndex }

// RegisterPipeline hashes the current pipeline-relevant state into the
// program's pipeline registry and reports whether that configuration was
// already known.
func (p *ShaderProgram) RegisterPipeline() bool {
	if !p.IsLinked() {
		return false
	}
	h := HashPipelineConfig(p.vsWords, p.fsWords, p.vertex.bindings)
	return p.cache.Register(h)
}

// SetCurrent records whether the program is the bound program. A deleted
// program is destroyed only after it stops being current.
func (p *ShaderProgram) SetCurrent(current bool) { p.current = current }

// IsCurrent reports whether the program is the bound program.
func (p *ShaderProgram) IsCurrent() bool { return p.current }

// MarkForDeletion records the client-side delete of the program's ID.
func (p *ShaderProgram) MarkForDeletion() { p.markedFree = true }

// FreeForDeletion reports whether the purge pass may destroy the program.
func (p *ShaderProgram) FreeForDeletion() bool {
	return p.markedFree && !p.current
}

// InfoLog returns the diagnostic from the last link attempt.
func (p *ShaderProgram) InfoLog() string { return p.infoLog }

// InfoLogLength returns the diagnostic length including a terminator, zero
// when there is no log.
func (p *ShaderProgram) InfoLogLength() int {
	if p.infoLog == "" {
		return 0
	}
	return len(p.infoLog) + 1
}

// releaseLinkedState destroys everything derived by a previous link.
func (p *ShaderProgram) releaseLinkedState() {
	p.releaseBindingObjects()
	if p.uniforms != nil {
		p.uniforms.release()
		p.uniforms = nil
	}
	if p.vsModule != nil {
		p.device.DestroyShaderModule(p.vsModule)
		p.vsModule = nil
	}
	if p.fsModule != nil {
		p.device.DestroyShaderModule(p.fsModule)
		p.fsModule = nil
	}
	p.refl = nil
	p.vsWords = nil
	p.fsWords = nil
	p.vertex.reset()
	p.activeIndex = indexDraw{}
	p.lastViews = nil
}

// ReleaseResources destroys all device objects the program owns. Called by
// the purge pass and by context teardown.
func (p *ShaderProgram) ReleaseResources() {
	p.releaseLinkedState()
	p.cache = nil
	p.state = stateUnlinked
	p.precompiled = false
}
