package check

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/broady/luadecl/cmd/luadecl/internal/project"
	"github.com/broady/luadecl/internal/runner"
)

type Cmd struct {
	Export   string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Package  string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Config   string `help:"Path to luadecl.toml (default: the package directory's)." type:"path"`
	NoConfig bool   `help:"Ignore the config function."`
}

func (c *Cmd) Run() error {
	target, err := project.Resolve(c.Package, c.Export, c.Config)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Found export: %s() %s\n", target.Export.Name, target.Export.Type)
	if fn := target.Package.ConfigFunc; fn != nil && !c.NoConfig {
		fmt.Printf("✓ Found config: %s(*luagen.Generator) *luagen.Generator\n", fn.Name)
	}
	if target.ConfigFile != "" {
		fmt.Printf("✓ Loaded %s\n", target.ConfigFile)
	}

	opts := target.RunnerOptions(c.NoConfig)
	opts.CheckMode = true
	opts.CheckSyntax = true
	opts.Stderr = os.Stderr

	output, err := runner.Exec(opts)
	if err != nil {
		return err
	}

	groups, entries, warnings, err := parseCounts(output)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d groups, %d entries, %d warnings\n", groups, entries, warnings)
	fmt.Println("✓ All references resolvable")
	return nil
}

// parseCounts reads the "groups entries warnings" line printed by the runner.
func parseCounts(output []byte) (groups, entries, warnings int, err error) {
	if _, err := fmt.Sscanf(string(output), "%d %d %d", &groups, &entries, &warnings); err != nil {
		return 0, 0, 0, errors.Wrapf(err, "parse check output %q", output)
	}
	return groups, entries, warnings, nil
}
