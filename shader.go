package gles

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// ShaderStage identifies a pipeline stage. Values are bit flags so uniform
// visibility can be expressed as a stage set.
type ShaderStage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex ShaderStage = 1 << iota
	// StageFragment is the fragment stage.
	StageFragment
)

// Shader is a single compiled shader stage. Compilation runs the external
// naga front end: source is parsed and lowered to the IR module that serves
// as the reflection table, then translated to SPIR-V stage bytecode.
type Shader struct {
	refCounted

	stage  ShaderStage
	source string

	compiled bool
	infoLog  string

	module *ir.Module
	words  []uint32

	// markedFree records that the client released this shader's name while
	// it was still attached somewhere; physical deletion waits until the
	// last program detaches it.
	markedFree bool
}

// NewShader creates an empty shader object for the given stage.
func NewShader(stage ShaderStage) *Shader {
	return &Shader{stage: stage}
}

// Stage returns the pipeline stage the shader compiles for.
func (s *Shader) Stage() ShaderStage { return s.stage }

// SetSource replaces the shader source and invalidates the compiled state.
func (s *Shader) SetSource(src string) {
	s.source = src
	s.compiled = false
	s.module = nil
	s.words = nil
	s.infoLog = ""
}

// Source returns the current shader source.
func (s *Shader) Source() string { return s.source }

// Compile runs the front end. A false return is a client usage error; the
// diagnostic is retrievable through InfoLog and the object stays valid for
// another attempt.
func (s *Shader) Compile() bool {
	s.compiled = false
	s.infoLog = ""

	ast, err := naga.Parse(s.source)
	if err != nil {
		s.infoLog = fmt.Sprintf("parse error: %v", err)
		return false
	}
	mod, err := naga.Lower(ast)
	if err != nil {
		s.infoLog = fmt.Sprintf("lower error: %v", err)
		return false
	}

	backend := spirv.NewBackend(spirv.DefaultOptions())
	code, err := backend.Compile(mod)
	if err != nil {
		s.infoLog = fmt.Sprintf("codegen error: %v", err)
		return false
	}

	s.module = mod
	s.words = spirvWords(code)
	s.compiled = true
	return true
}

// IsCompiled reports whether the shader holds valid bytecode.
func (s *Shader) IsCompiled() bool { return s.compiled }

// IR exposes the reflection module produced by compilation; nil until
// compiled.
func (s *Shader) IR() *ir.Module { return s.module }

// Words returns the SPIR-V bytecode as 32-bit words; nil until compiled.
func (s *Shader) Words() []uint32 { return s.words }

// SetWords installs externally decoded bytecode, used on the precompiled
// binary path where the front end never runs.
func (s *Shader) SetWords(words []uint32) {
	s.words = words
	s.compiled = true
}

// InfoLog returns the diagnostic from the last compilation attempt.
func (s *Shader) InfoLog() string { return s.infoLog }

// InfoLogLength returns the diagnostic length in bytes including a
// terminator, zero when there is no log. The fixed API queries length
// before content.
func (s *Shader) InfoLogLength() int {
	if s.infoLog == "" {
		return 0
	}
	return len(s.infoLog) + 1
}

// MarkForDeletion records the client-side delete of the shader's name.
func (s *Shader) MarkForDeletion() { s.markedFree = true }

// FreeForDeletion reports whether the purge pass may destroy the shader:
// the client released it and no program holds it attached.
func (s *Shader) FreeForDeletion() bool {
	return s.markedFree && s.RefCount() == 0
}

// spirvWords converts little-endian SPIR-V bytes to 32-bit words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
