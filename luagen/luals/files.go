package luals

import (
	"github.com/broady/luadecl/luagen/ir"
)

// DefaultExtension is appended to group names when no extension is set.
const DefaultExtension = ".d.lua"

// File is one output file: the group name plus extension, and the writer
// that renders it.
type File struct {
	Name   string
	Group  string
	Writer *Writer
}

// FileGenerator maps every group of a set of definitions to a file.
type FileGenerator struct {
	defs *ir.Definitions
	ext  string
	cfg  Config
}

// NewFileGenerator returns a generator using DefaultExtension.
func NewFileGenerator(defs *ir.Definitions) *FileGenerator {
	return &FileGenerator{defs: defs, ext: DefaultExtension}
}

// Extension sets the suffix of every file name. It should start with a dot.
func (g *FileGenerator) Extension(ext string) *FileGenerator {
	g.ext = ext
	return g
}

// WithConfig sets the writer layout.
func (g *FileGenerator) WithConfig(cfg Config) *FileGenerator {
	g.cfg = cfg
	return g
}

// Files returns one file per group, in group order. Each file has its own
// writer, so files may be rendered concurrently.
func (g *FileGenerator) Files() []File {
	files := make([]File, 0, len(g.defs.Groups))
	for _, def := range g.defs.Groups {
		files = append(files, File{
			Name:   def.Name + g.ext,
			Group:  def.Name,
			Writer: NewWriter(def, g.cfg),
		})
	}
	return files
}
