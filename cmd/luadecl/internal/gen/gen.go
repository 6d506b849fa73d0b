package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/broady/luadecl/cmd/luadecl/internal/project"
	"github.com/broady/luadecl/internal/runner"
)

type Cmd struct {
	Out         string `arg:"" optional:"" help:"Output directory for definition files (default: out_dir from luadecl.toml)."`
	Export      string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Package     string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Ext         string `help:"File extension for definition files (default: .d.lua)."`
	CheckSyntax bool   `help:"Parse each generated file as Lua before writing it." name:"check-syntax"`
	Config      string `help:"Path to luadecl.toml (default: the package directory's)." type:"path"`
	NoConfig    bool   `help:"Ignore the config function."`
}

func (c *Cmd) Run() error {
	target, err := project.Resolve(c.Package, c.Export, c.Config)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = target.Config.OutDir
		if out != "" && !filepath.IsAbs(out) {
			out = filepath.Join(filepath.Dir(target.ConfigFile), out)
		}
	}
	if out == "" {
		return errors.WithHint(
			errors.New("no output directory"),
			"pass one as an argument or set out_dir in luadecl.toml",
		)
	}
	outDir, err := filepath.Abs(out)
	if err != nil {
		return errors.Wrap(err, "resolve output path")
	}

	opts := target.RunnerOptions(c.NoConfig)
	opts.OutDir = outDir
	opts.Extension = c.Ext
	opts.CheckSyntax = c.CheckSyntax
	opts.Stderr = os.Stderr

	output, err := runner.Exec(opts)
	if err != nil {
		return err
	}
	if len(output) > 0 {
		fmt.Print(string(output))
	}
	return nil
}
