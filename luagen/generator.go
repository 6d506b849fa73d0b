// Package luagen generates Lua language server definition files from
// definition groups built with package ir.
package luagen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/broady/luadecl/luagen/ir"
	"github.com/broady/luadecl/luagen/luals"
	"github.com/broady/luadecl/luagen/sink"
)

// Generator provides a fluent API for definition file generation.
// Create one with FromDefinitions or FromBuilder and configure it with
// method chaining.
//
// Example:
//
//	luagen.FromBuilder(ir.NewDefinitions().
//	    Define("init", ir.NewDefinition().Register(&Greeter{}))).
//	    CheckSyntax().
//	    ToDir("./types")
type Generator struct {
	defs   *ir.Definitions
	err    error
	cfg    Config
	logger *slog.Logger
}

// FromDefinitions creates a Generator for finished definitions.
func FromDefinitions(defs *ir.Definitions) *Generator {
	return &Generator{defs: defs}
}

// FromBuilder finishes b and creates a Generator for the result. Errors
// recorded by the builder are returned by the terminal operation.
func FromBuilder(b *ir.DefinitionsBuilder) *Generator {
	defs, err := b.Finish()
	return &Generator{defs: defs, err: err}
}

// Extension sets the file name suffix. Default: ".d.lua"
func (g *Generator) Extension(ext string) *Generator {
	g.cfg.Extension = ext
	return g
}

// IndentSize sets the spaces per table nesting level.
func (g *Generator) IndentSize(n int) *Generator {
	g.cfg.IndentSize = n
	return g
}

// Frontmatter adds comment lines below the @meta header of every file.
func (g *Generator) Frontmatter(content string) *Generator {
	g.cfg.Frontmatter = content
	return g
}

// OmitComments drops doc strings from the output.
func (g *Generator) OmitComments() *Generator {
	g.cfg.OmitComments = true
	return g
}

// Only limits generation to the named groups.
func (g *Generator) Only(groups ...string) *Generator {
	g.cfg.Groups = append(g.cfg.Groups, groups...)
	return g
}

// CheckSyntax parses every file as Lua before it is written.
func (g *Generator) CheckSyntax() *Generator {
	g.cfg.CheckSyntax = true
	return g
}

// ContinueOnError writes the groups that rendered even when others fail.
func (g *Generator) ContinueOnError() *Generator {
	g.cfg.ContinueOnError = true
	return g
}

// Prune removes stale definition files from the output directory.
func (g *Generator) Prune() *Generator {
	g.cfg.Prune = true
	return g
}

// Parallelism bounds how many groups render at once.
func (g *Generator) Parallelism(n int) *Generator {
	g.cfg.Parallelism = n
	return g
}

// WithConfig replaces the whole configuration, for example with one read by
// LoadConfig.
func (g *Generator) WithConfig(cfg Config) *Generator {
	g.cfg = cfg
	return g
}

// WithLogger sets the logger used for progress and warnings.
// Default: slog.Default()
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.logger = logger
	return g
}

// Config returns the current configuration.
func (g *Generator) Config() Config { return g.cfg }

// Definitions returns the definitions to generate, or nil if the builder
// failed.
func (g *Generator) Definitions() *ir.Definitions { return g.defs }

// GeneratedFile describes one written file.
type GeneratedFile struct {
	Path    string
	Group   string
	Content []byte
}

// GenerateResult describes a generation run.
type GenerateResult struct {
	// Files lists the files written, in group order.
	Files []GeneratedFile

	// Warnings are non-fatal issues recorded while building definitions.
	Warnings []ir.Warning

	// Pruned lists stale files removed from the output directory.
	Pruned []string
}

// GroupError reports a group that could not be rendered.
type GroupError struct {
	Group string
	Err   error
}

func (e *GroupError) Error() string { return fmt.Sprintf("group %s: %v", e.Group, e.Err) }

func (e *GroupError) Unwrap() error { return e.Err }

// ToDir writes files into dir.
func (g *Generator) ToDir(dir string) (*GenerateResult, error) {
	g.cfg.OutDir = dir
	return g.ToSink(context.Background(), sink.NewFilesystemSink(dir))
}

// Generate renders files in memory without writing to disk.
func (g *Generator) Generate() (*GenerateResult, error) {
	return g.ToSink(context.Background(), sink.NewMemorySink())
}

// ToSink renders every selected group and writes the results to out.
//
// Unless ContinueOnError is set, nothing is written when any group fails.
// With ContinueOnError the successful groups are written and the returned
// result is non-nil alongside the combined group errors.
func (g *Generator) ToSink(ctx context.Context, out sink.OutputSink) (*GenerateResult, error) {
	logger := g.logger
	if logger == nil {
		logger = slog.Default()
	}
	if g.err != nil {
		return nil, errors.WithHint(g.err, "fix the definitions before generating files")
	}
	if g.defs == nil {
		return nil, errors.New("no definitions to generate")
	}

	cfg := applyConfigDefaults(g.cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(g.defs.Validate()...); err != nil {
		return nil, err
	}

	files, err := selectFiles(g.defs, cfg)
	if err != nil {
		return nil, err
	}

	contents, groupErr := render(ctx, files, cfg)
	if groupErr != nil && !cfg.ContinueOnError {
		return nil, groupErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &GenerateResult{Warnings: g.defs.Warnings()}
	for _, w := range result.Warnings {
		logger.WarnContext(ctx, "definition warning", "code", w.Code, "group", w.Group, "entry", w.Entry, "message", w.Message)
	}

	var written []string
	for i, f := range files {
		if contents[i] == nil {
			logger.ErrorContext(ctx, "skipping group", "group", f.Group)
			continue
		}
		if err := out.WriteFile(ctx, f.Name, contents[i]); err != nil {
			return result, fmt.Errorf("write %s: %w", f.Name, err)
		}
		logger.DebugContext(ctx, "wrote definition file", "path", f.Name, "group", f.Group, "bytes", len(contents[i]))
		result.Files = append(result.Files, GeneratedFile{Path: f.Name, Group: f.Group, Content: contents[i]})
		written = append(written, f.Name)
	}

	if fs, ok := out.(*sink.FilesystemSink); ok && cfg.Prune && len(cfg.Groups) == 0 {
		pruned, err := fs.Prune(ctx, cfg.Extension, written)
		if err != nil {
			return result, err
		}
		for _, p := range pruned {
			logger.InfoContext(ctx, "removed stale definition file", "path", p)
		}
		result.Pruned = pruned
	}

	return result, groupErr
}

// selectFiles returns the files for the configured groups.
func selectFiles(defs *ir.Definitions, cfg Config) ([]luals.File, error) {
	files := luals.NewFileGenerator(defs).
		Extension(cfg.Extension).
		WithConfig(cfg.writerConfig()).
		Files()
	if len(cfg.Groups) == 0 {
		return files, nil
	}

	for _, name := range cfg.Groups {
		if defs.Get(name) == nil {
			return nil, errors.WithHint(
				errors.Newf("unknown definition group %q", name),
				"groups are the names passed to DefinitionsBuilder.Define",
			)
		}
	}
	return slices.DeleteFunc(files, func(f luals.File) bool {
		return !slices.Contains(cfg.Groups, f.Group)
	}), nil
}

// render renders files concurrently. A nil content marks a failed group;
// the failures are combined into the returned error.
func render(ctx context.Context, files []luals.File, cfg Config) ([][]byte, error) {
	contents := make([][]byte, len(files))
	errs := make([]error, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	if cfg.Parallelism > 0 {
		eg.SetLimit(cfg.Parallelism)
	}
	for i, f := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := f.Writer.Bytes()
			if err == nil && cfg.CheckSyntax {
				err = sink.CheckSyntax(f.Name, content)
			}
			if err != nil {
				errs[i] = &GroupError{Group: f.Group, Err: withHint(err)}
				return nil
			}
			contents[i] = content
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return contents, multierr.Combine(errs...)
}

func withHint(err error) error {
	var unresolved *ir.UnresolvedReferenceError
	var root *ir.UnsupportedRootTypeError
	switch {
	case errors.As(err, &unresolved):
		return errors.WithHint(err, "register the class or enum earlier in the same group than any entry that uses it")
	case errors.As(err, &root):
		return errors.WithHint(err, "top-level entries must be values, aliases, classes, enums, functions or modules")
	}
	return err
}
