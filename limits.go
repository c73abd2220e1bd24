package gles

// Limits holds the fixed-API capability budgets enforced by the core.
// One Limits value is owned per context; there is no ambient global state.
type Limits struct {
	// MaxVertexAttribs bounds the number of vertex attribute locations a
	// linked program may consume (wide types occupy several).
	MaxVertexAttribs int

	// MaxVertexUniformVectors bounds the vec4-equivalent uniform storage
	// visible to the vertex stage.
	MaxVertexUniformVectors int

	// MaxFragmentUniformVectors bounds the vec4-equivalent uniform storage
	// visible to the fragment stage.
	MaxFragmentUniformVectors int

	// MaxTextureUnits bounds the sampler texture-unit indices a client may
	// assign.
	MaxTextureUnits int
}

// DefaultLimits returns the budgets used when the host does not override
// them. Values are comfortably above the GLES2 minima.
func DefaultLimits() Limits {
	return Limits{
		MaxVertexAttribs:          16,
		MaxVertexUniformVectors:   128,
		MaxFragmentUniformVectors: 64,
		MaxTextureUnits:           32,
	}
}
