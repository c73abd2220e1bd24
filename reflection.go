package gles

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

// DataType is the fixed-API type of a uniform or vertex attribute.
type DataType uint8

const (
	// TypeFloat is a 32-bit float scalar.
	TypeFloat DataType = iota
	// TypeFloatVec2 is a 2-component float vector.
	TypeFloatVec2
	// TypeFloatVec3 is a 3-component float vector.
	TypeFloatVec3
	// TypeFloatVec4 is a 4-component float vector.
	TypeFloatVec4
	// TypeInt is a 32-bit signed integer scalar.
	TypeInt
	// TypeIntVec2 is a 2-component integer vector.
	TypeIntVec2
	// TypeIntVec3 is a 3-component integer vector.
	TypeIntVec3
	// TypeIntVec4 is a 4-component integer vector.
	TypeIntVec4
	// TypeUint is a 32-bit unsigned integer scalar.
	TypeUint
	// TypeBool is a boolean scalar (stored as 32 bits).
	TypeBool
	// TypeFloatMat2 is a 2x2 float matrix.
	TypeFloatMat2
	// TypeFloatMat3 is a 3x3 float matrix.
	TypeFloatMat3
	// TypeFloatMat4 is a 4x4 float matrix.
	TypeFloatMat4
	// TypeSampler2D samples a 2D texture.
	TypeSampler2D
	// TypeSamplerCube samples a cube map.
	TypeSamplerCube
)

// ByteSize returns the client-data size of one element of the type.
func (t DataType) ByteSize() uint32 {
	switch t {
	case TypeFloat, TypeInt, TypeUint, TypeBool:
		return 4
	case TypeFloatVec2, TypeIntVec2:
		return 8
	case TypeFloatVec3, TypeIntVec3:
		return 12
	case TypeFloatVec4, TypeIntVec4:
		return 16
	case TypeFloatMat2:
		return 16
	case TypeFloatMat3:
		return 36
	case TypeFloatMat4:
		return 64
	case TypeSampler2D, TypeSamplerCube:
		return 4 // texture unit index
	default:
		return 4
	}
}

// VectorCount returns how many vec4-equivalent uniform slots one element of
// the type consumes, for budget accounting.
func (t DataType) VectorCount() int {
	switch t {
	case TypeFloatMat2:
		return 2
	case TypeFloatMat3:
		return 3
	case TypeFloatMat4:
		return 4
	default:
		return 1
	}
}

// Locations returns how many consecutive vertex attribute locations the
// type occupies: matrices bind one column per location.
func (t DataType) Locations() uint32 {
	switch t {
	case TypeFloatMat2:
		return 2
	case TypeFloatMat3:
		return 3
	case TypeFloatMat4:
		return 4
	default:
		return 1
	}
}

// IsSampler reports whether the type is an opaque sampler type.
func (t DataType) IsSampler() bool {
	return t == TypeSampler2D || t == TypeSamplerCube
}

// VertexFormat maps the type to the host vertex fetch format of a single
// occupied location.
func (t DataType) VertexFormat() gputypes.VertexFormat {
	switch t {
	case TypeFloat:
		return gputypes.VertexFormatFloat32
	case TypeFloatVec2, TypeFloatMat2:
		return gputypes.VertexFormatFloat32x2
	case TypeFloatVec3, TypeFloatMat3:
		return gputypes.VertexFormatFloat32x3
	case TypeFloatVec4, TypeFloatMat4:
		return gputypes.VertexFormatFloat32x4
	case TypeInt:
		return gputypes.VertexFormatSint32
	case TypeIntVec2:
		return gputypes.VertexFormatSint32x2
	case TypeIntVec3:
		return gputypes.VertexFormatSint32x3
	case TypeIntVec4:
		return gputypes.VertexFormatSint32x4
	case TypeUint:
		return gputypes.VertexFormatUint32
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// AttributeInfo describes one active vertex attribute.
type AttributeInfo struct {
	Name     string
	Type     DataType
	Location uint32
}

// UniformBlockInfo describes one uniform buffer binding of the linked
// interface.
type UniformBlockInfo struct {
	Name    string
	Binding uint32
	Size    uint32
	Stage   ShaderStage
}

// UniformInfo describes one active uniform living inside a uniform block.
type UniformInfo struct {
	Name      string
	Type      DataType
	ArraySize uint32
	Location  int32
	Block     int32 // index into Blocks
	Offset    uint32
	Stage     ShaderStage
}

// SamplerInfo describes one active sampler uniform: a texture binding plus
// its paired sampler binding in the host bind group.
type SamplerInfo struct {
	Name           string
	Type           DataType
	Location       int32
	TextureBinding uint32
	SamplerBinding uint32
	Stage          ShaderStage
}

// ShaderReflection is the derived resource interface of a linked program:
// the ordered lists of active uniforms, uniform blocks, samplers and vertex
// attributes with their locations and bindings.
type ShaderReflection struct {
	Attributes []AttributeInfo
	Blocks     []UniformBlockInfo
	Uniforms   []UniformInfo
	Samplers   []SamplerInfo
}

// ActiveAttributes reports the active vertex attribute count.
func (r *ShaderReflection) ActiveAttributes() int { return len(r.Attributes) }

// ActiveUniforms reports the active uniform count, samplers included.
func (r *ShaderReflection) ActiveUniforms() int {
	return len(r.Uniforms) + len(r.Samplers)
}

// ActiveAttrib returns the i-th active attribute in location order, nil out
// of range.
func (r *ShaderReflection) ActiveAttrib(i int) *AttributeInfo {
	if i < 0 || i >= len(r.Attributes) {
		return nil
	}
	return &r.Attributes[i]
}

// ActiveUniform enumerates uniforms and samplers as one list, the uniforms
// first. Returns nil out of range; samplers come back as UniformInfo with
// the sampler's name, type and location.
func (r *ShaderReflection) ActiveUniform(i int) *UniformInfo {
	if i < 0 {
		return nil
	}
	if i < len(r.Uniforms) {
		return &r.Uniforms[i]
	}
	i -= len(r.Uniforms)
	if i < len(r.Samplers) {
		s := &r.Samplers[i]
		return &UniformInfo{
			Name:     s.Name,
			Type:     s.Type,
			Location: s.Location,
			Stage:    s.Stage,
		}
	}
	return nil
}

// AttributeLocation resolves an attribute name to its location, -1 when the
// name is not an active attribute.
func (r *ShaderReflection) AttributeLocation(name string) int32 {
	for i := range r.Attributes {
		if r.Attributes[i].Name == name {
			return int32(r.Attributes[i].Location)
		}
	}
	return -1
}

// UniformLocation resolves a uniform or sampler name to its location, -1
// when the name is not active.
func (r *ShaderReflection) UniformLocation(name string) int32 {
	for i := range r.Uniforms {
		if r.Uniforms[i].Name == name {
			return r.Uniforms[i].Location
		}
	}
	for i := range r.Samplers {
		if r.Samplers[i].Name == name {
			return r.Samplers[i].Location
		}
	}
	return -1
}

// UniformByLocation returns the uniform at the location, nil for sampler
// and unknown locations.
func (r *ShaderReflection) UniformByLocation(loc int32) *UniformInfo {
	for i := range r.Uniforms {
		if r.Uniforms[i].Location == loc {
			return &r.Uniforms[i]
		}
	}
	return nil
}

// SamplerByLocation returns the sampler at the location, nil for non-
// sampler locations.
func (r *ShaderReflection) SamplerByLocation(loc int32) *SamplerInfo {
	for i := range r.Samplers {
		if r.Samplers[i].Location == loc {
			return &r.Samplers[i]
		}
	}
	return nil
}

// UniformVectors sums the vec4-equivalent slots consumed by uniforms
// visible to the stage, for link-time budget checks.
func (r *ShaderReflection) UniformVectors(stage ShaderStage) int {
	total := 0
	for i := range r.Uniforms {
		u := &r.Uniforms[i]
		if u.Stage&stage != 0 {
			n := int(u.ArraySize)
			if n == 0 {
				n = 1
			}
			total += u.Type.VectorCount() * n
		}
	}
	return total
}

// assignLocations hands out sequential uniform locations: plain uniforms
// first, then samplers. Locations are stable for a given interface shape.
func (r *ShaderReflection) assignLocations() {
	loc := int32(0)
	for i := range r.Uniforms {
		r.Uniforms[i].Location = loc
		loc++
	}
	for i := range r.Samplers {
		r.Samplers[i].Location = loc
		loc++
	}
}

// buildReflection derives the program resource interface from the two
// per-stage IR modules produced by the external shader compiler.
func buildReflection(vs, fs *ir.Module) (*ShaderReflection, error) {
	refl := &ShaderReflection{}

	if err := refl.collectAttributes(vs); err != nil {
		return nil, err
	}
	if err := refl.collectGlobals(vs, StageVertex); err != nil {
		return nil, err
	}
	if err := refl.collectGlobals(fs, StageFragment); err != nil {
		return nil, err
	}
	refl.assignLocations()
	return refl, nil
}

// collectAttributes walks the vertex entry point's arguments. Arguments
// bound with @location become attributes directly; struct arguments expand
// into one attribute per location-bound member.
func (r *ShaderReflection) collectAttributes(vs *ir.Module) error {
	// Entry-point functions live inline on the entry point, not in
	// Module.Functions.
	var fn *ir.Function
	for i := range vs.EntryPoints {
		if vs.EntryPoints[i].Stage == ir.StageVertex {
			fn = &vs.EntryPoints[i].Function
			break
		}
	}
	if fn == nil {
		return fmt.Errorf("gles: vertex module has no vertex entry point")
	}

	for ai := range fn.Arguments {
		arg := &fn.Arguments[ai]
		if loc, ok := bindingLocation(arg.Binding); ok {
			dt, _ := dataTypeOf(vs, arg.Type)
			r.Attributes = append(r.Attributes, AttributeInfo{
				Name: arg.Name, Type: dt, Location: loc,
			})
			continue
		}
		st, ok := vs.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue // builtin input (vertex index etc.)
		}
		for mi := range st.Members {
			m := &st.Members[mi]
			if loc, ok := bindingLocation(m.Binding); ok {
				dt, _ := dataTypeOf(vs, m.Type)
				r.Attributes = append(r.Attributes, AttributeInfo{
					Name: m.Name, Type: dt, Location: loc,
				})
			}
		}
	}
	return nil
}

// collectGlobals folds one stage's global variables into the interface.
// Uniform-space globals become uniform blocks whose struct members are the
// active uniforms; handle-space texture globals become samplers, paired
// with the stage's sampler globals in binding order.
func (r *ShaderReflection) collectGlobals(m *ir.Module, stage ShaderStage) error {
	var samplerBindings []uint32

	for gi := range m.GlobalVariables {
		gv := &m.GlobalVariables[gi]
		if gv.Space != ir.SpaceHandle || gv.Binding == nil {
			continue
		}
		if _, ok := m.Types[gv.Type].Inner.(ir.SamplerType); ok {
			samplerBindings = append(samplerBindings, gv.Binding.Binding)
		}
	}

	samplerIdx := 0
	for gi := range m.GlobalVariables {
		gv := &m.GlobalVariables[gi]
		if gv.Binding == nil {
			continue
		}

		switch gv.Space {
		case ir.SpaceUniform:
			if err := r.addBlock(m, gv, stage); err != nil {
				return err
			}

		case ir.SpaceHandle:
			if _, ok := m.Types[gv.Type].Inner.(ir.ImageType); !ok {
				continue
			}
			dt, _ := dataTypeOf(m, gv.Type)
			info := SamplerInfo{
				Name:           gv.Name,
				Type:           dt,
				TextureBinding: gv.Binding.Binding,
				Stage:          stage,
			}
			if samplerIdx < len(samplerBindings) {
				info.SamplerBinding = samplerBindings[samplerIdx]
				samplerIdx++
			} else {
				info.SamplerBinding = info.TextureBinding + 1
			}
			if prev := r.findSampler(info.Name); prev != nil {
				prev.Stage |= stage
			} else {
				r.Samplers = append(r.Samplers, info)
			}
		}
	}
	return nil
}

func (r *ShaderReflection) findSampler(name string) *SamplerInfo {
	for i := range r.Samplers {
		if r.Samplers[i].Name == name {
			return &r.Samplers[i]
		}
	}
	return nil
}

func (r *ShaderReflection) findBlock(name string) int32 {
	for i := range r.Blocks {
		if r.Blocks[i].Name == name {
			return int32(i)
		}
	}
	return -1
}

func (r *ShaderReflection) addBlock(m *ir.Module, gv *ir.GlobalVariable, stage ShaderStage) error {
	if idx := r.findBlock(gv.Name); idx >= 0 {
		// Same block declared in both stages: widen visibility, uniforms
		// were already collected.
		r.Blocks[idx].Stage |= stage
		for i := range r.Uniforms {
			if r.Uniforms[i].Block == idx {
				r.Uniforms[i].Stage |= stage
			}
		}
		return nil
	}

	st, ok := m.Types[gv.Type].Inner.(ir.StructType)
	if !ok {
		return fmt.Errorf("gles: uniform %q is not a struct block", gv.Name)
	}

	blockIdx := int32(len(r.Blocks))
	r.Blocks = append(r.Blocks, UniformBlockInfo{
		Name:    gv.Name,
		Binding: gv.Binding.Binding,
		Size:    st.Span,
		Stage:   stage,
	})

	for mi := range st.Members {
		mem := &st.Members[mi]
		dt, arraySize := dataTypeOf(m, mem.Type)
		r.Uniforms = append(r.Uniforms, UniformInfo{
			Name:      gv.Name + "." + mem.Name,
			Type:      dt,
			ArraySize: arraySize,
			Block:     blockIdx,
			Offset:    mem.Offset,
			Stage:     stage,
		})
	}
	return nil
}

// bindingLocation extracts the @location index from an IR binding.
func bindingLocation(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	if lb, ok := (*b).(ir.LocationBinding); ok {
		return lb.Location, true
	}
	return 0, false
}

// dataTypeOf maps an IR type handle to the fixed-API data type, resolving
// arrays to their element type plus a count.
func dataTypeOf(m *ir.Module, h ir.TypeHandle) (DataType, uint32) {
	switch inner := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		return scalarDataType(inner.Kind), 1

	case ir.VectorType:
		base := scalarDataType(inner.Scalar.Kind)
		switch inner.Size {
		case ir.Vec2:
			if base == TypeInt {
				return TypeIntVec2, 1
			}
			return TypeFloatVec2, 1
		case ir.Vec3:
			if base == TypeInt {
				return TypeIntVec3, 1
			}
			return TypeFloatVec3, 1
		default:
			if base == TypeInt {
				return TypeIntVec4, 1
			}
			return TypeFloatVec4, 1
		}

	case ir.MatrixType:
		switch inner.Columns {
		case ir.Vec2:
			return TypeFloatMat2, 1
		case ir.Vec3:
			return TypeFloatMat3, 1
		default:
			return TypeFloatMat4, 1
		}

	case ir.ArrayType:
		dt, _ := dataTypeOf(m, inner.Base)
		if inner.Size.Constant != nil {
			return dt, *inner.Size.Constant
		}
		return dt, 1 // runtime-sized, not expressible as a uniform array

	case ir.ImageType:
		if inner.Dim == ir.DimCube {
			return TypeSamplerCube, 1
		}
		return TypeSampler2D, 1

	default:
		return TypeFloat, 1
	}
}

func scalarDataType(k ir.ScalarKind) DataType {
	switch k {
	case ir.ScalarSint:
		return TypeInt
	case ir.ScalarUint:
		return TypeUint
	case ir.ScalarBool:
		return TypeBool
	default:
		return TypeFloat
	}
}
