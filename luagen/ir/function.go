package ir

// Param is a function parameter. An empty Name means the parameter is
// unnamed; writers substitute a positional name.
type Param struct {
	Name string
	Doc  string
	Type Type
}

// Return is a single function result.
type Return struct {
	Doc  string
	Type Type
}

// Field is a documented member shape recorded by a collector.
type Field struct {
	Type Type
	Doc  string
}

// Func is a documented function signature recorded by a collector.
type Func struct {
	Params  []Param
	Returns []Return
	Doc     string
}

// Type returns the function shape of f.
func (f *Func) Type() *FunctionType {
	return Function(f.Params, f.Returns)
}

// FunctionBuilder adjusts a signature derived from a Go function before it is
// recorded. Indexes that are out of range are ignored.
type FunctionBuilder struct {
	Params  []Param
	Returns []Return
}

// Param edits the i-th parameter.
func (b *FunctionBuilder) Param(i int, edit func(*ParamBuilder)) *FunctionBuilder {
	if i >= 0 && i < len(b.Params) {
		edit(&ParamBuilder{p: &b.Params[i]})
	}
	return b
}

// Return edits the i-th result.
func (b *FunctionBuilder) Return(i int, edit func(*ReturnBuilder)) *FunctionBuilder {
	if i >= 0 && i < len(b.Returns) {
		edit(&ReturnBuilder{r: &b.Returns[i]})
	}
	return b
}

// ParamBuilder edits a single parameter.
type ParamBuilder struct {
	p *Param
}

func (b *ParamBuilder) Name(name string) *ParamBuilder { b.p.Name = name; return b }
func (b *ParamBuilder) Doc(doc string) *ParamBuilder   { b.p.Doc = doc; return b }
func (b *ParamBuilder) Type(t Type) *ParamBuilder      { b.p.Type = t; return b }

// ReturnBuilder edits a single result.
type ReturnBuilder struct {
	r *Return
}

func (b *ReturnBuilder) Doc(doc string) *ReturnBuilder { b.r.Doc = doc; return b }
func (b *ReturnBuilder) Type(t Type) *ReturnBuilder    { b.r.Type = t; return b }

// buildFunc derives the signature of fn, skipping receivers self parameters,
// and applies with when non-nil.
func buildFunc(fn any, receivers int, with func(*FunctionBuilder)) *Func {
	params, returns := SignatureOf(fn, receivers)
	fb := &FunctionBuilder{Params: params, Returns: returns}
	if with != nil {
		with(fb)
	}
	return &Func{Params: fb.Params, Returns: fb.Returns}
}
