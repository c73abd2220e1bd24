package gles

import (
	"encoding/binary"
)

// Program binary layout: a self-describing reflection section, the SPIR-V
// words of each stage prefixed by their byte size, then the pipeline cache
// blob occupying the remainder.
//
//	[reflection][u32 vs-size][vs words][u32 fs-size][fs words][cache blob]

const (
	binaryMagic   = 0x424c4721 // "!GLB"
	binaryVersion = 1
)

func appendU16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU16(buf, uint16(len(s)))
	return append(buf, s...)
}

// binaryReader walks a program binary, remembering a sticky error so
// callers validate once at the end.
type binaryReader struct {
	data []byte
	off  int
	err  error
}

func (r *binaryReader) fail() {
	if r.err == nil {
		r.err = ErrBadBinary
	}
}

func (r *binaryReader) u8() byte {
	if r.err != nil || r.off+1 > len(r.data) {
		r.fail()
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *binaryReader) u16() uint16 {
	if r.err != nil || r.off+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *binaryReader) u32() uint32 {
	if r.err != nil || r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *binaryReader) str() string {
	n := int(r.u16())
	if r.err != nil || r.off+n > len(r.data) {
		r.fail()
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *binaryReader) bytes(n int) []byte {
	if r.err != nil || n < 0 || r.off+n > len(r.data) {
		r.fail()
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *binaryReader) rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}

// encodeReflection serializes the interface as a length-prefixed section so
// the decoder knows where the SPIR-V payload starts.
func encodeReflection(refl *ShaderReflection) []byte {
	body := make([]byte, 0, 256)
	body = appendU32(body, binaryMagic)
	body = appendU32(body, binaryVersion)

	body = appendU16(body, uint16(len(refl.Attributes)))
	for i := range refl.Attributes {
		a := &refl.Attributes[i]
		body = appendString(body, a.Name)
		body = append(body, byte(a.Type))
		body = appendU32(body, a.Location)
	}

	body = appendU16(body, uint16(len(refl.Blocks)))
	for i := range refl.Blocks {
		b := &refl.Blocks[i]
		body = appendString(body, b.Name)
		body = appendU32(body, b.Binding)
		body = appendU32(body, b.Size)
		body = append(body, byte(b.Stage))
	}

	body = appendU16(body, uint16(len(refl.Uniforms)))
	for i := range refl.Uniforms {
		u := &refl.Uniforms[i]
		body = appendString(body, u.Name)
		body = append(body, byte(u.Type))
		body = appendU32(body, u.ArraySize)
		body = appendU32(body, uint32(u.Block))
		body = appendU32(body, u.Offset)
		body = append(body, byte(u.Stage))
	}

	body = appendU16(body, uint16(len(refl.Samplers)))
	for i := range refl.Samplers {
		s := &refl.Samplers[i]
		body = appendString(body, s.Name)
		body = append(body, byte(s.Type))
		body = appendU32(body, s.TextureBinding)
		body = appendU32(body, s.SamplerBinding)
		body = append(body, byte(s.Stage))
	}

	out := appendU32(nil, uint32(len(body)))
	return append(out, body...)
}

// decodeReflection parses the reflection section and reports how many bytes
// it consumed.
func decodeReflection(data []byte) (*ShaderReflection, int, error) {
	hdr := binaryReader{data: data}
	sectionLen := int(hdr.u32())
	if hdr.err != nil || hdr.off+sectionLen > len(data) {
		return nil, 0, ErrBadBinary
	}

	r := binaryReader{data: data[hdr.off : hdr.off+sectionLen]}
	if r.u32() != binaryMagic || r.u32() != binaryVersion {
		return nil, 0, ErrBadBinary
	}

	refl := &ShaderReflection{}

	for n := int(r.u16()); n > 0 && r.err == nil; n-- {
		var a AttributeInfo
		a.Name = r.str()
		a.Type = DataType(r.u8())
		a.Location = r.u32()
		refl.Attributes = append(refl.Attributes, a)
	}

	for n := int(r.u16()); n > 0 && r.err == nil; n-- {
		var b UniformBlockInfo
		b.Name = r.str()
		b.Binding = r.u32()
		b.Size = r.u32()
		b.Stage = ShaderStage(r.u8())
		refl.Blocks = append(refl.Blocks, b)
	}

	for n := int(r.u16()); n > 0 && r.err == nil; n-- {
		var u UniformInfo
		u.Name = r.str()
		u.Type = DataType(r.u8())
		u.ArraySize = r.u32()
		u.Block = int32(r.u32())
		u.Offset = r.u32()
		u.Stage = ShaderStage(r.u8())
		refl.Uniforms = append(refl.Uniforms, u)
	}

	for n := int(r.u16()); n > 0 && r.err == nil; n-- {
		var s SamplerInfo
		s.Name = r.str()
		s.Type = DataType(r.u8())
		s.TextureBinding = r.u32()
		s.SamplerBinding = r.u32()
		s.Stage = ShaderStage(r.u8())
		refl.Samplers = append(refl.Samplers, s)
	}

	if r.err != nil {
		return nil, 0, r.err
	}

	// A section can parse cleanly and still carry inconsistent indices.
	// Reject them here so a corrupt binary never installs an interface
	// whose first uniform write indexes outside its block.
	for i := range refl.Uniforms {
		u := &refl.Uniforms[i]
		if u.Block < 0 || int(u.Block) >= len(refl.Blocks) {
			return nil, 0, ErrBadBinary
		}
		n := u.ArraySize
		if n == 0 {
			n = 1
		}
		if uint64(u.Offset)+uint64(n)*uint64(u.Type.ByteSize()) > uint64(refl.Blocks[u.Block].Size) {
			return nil, 0, ErrBadBinary
		}
	}

	refl.assignLocations()
	return refl, hdr.off + sectionLen, nil
}

// appendWords serializes a SPIR-V word stream as byte size plus
// little-endian words.
func appendWords(buf []byte, words []uint32) []byte {
	buf = appendU32(buf, uint32(len(words)*4))
	for _, w := range words {
		buf = appendU32(buf, w)
	}
	return buf
}

func (r *binaryReader) words() []uint32 {
	size := int(r.u32())
	if r.err != nil || size%4 != 0 {
		r.fail()
		return nil
	}
	raw := r.bytes(size)
	if r.err != nil {
		return nil
	}
	words := make([]uint32, size/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}
