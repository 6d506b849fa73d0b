// Package project resolves the export and configuration a command runs against.
package project

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/broady/luadecl/internal/discover"
	"github.com/broady/luadecl/internal/runner"
	"github.com/broady/luadecl/luagen"
)

// Target is a discovered export plus the settings it runs with.
type Target struct {
	Package *discover.Result
	Export  *discover.Export

	// ConfigFile is the absolute path of the config file in use, if any.
	ConfigFile string
	Config     luagen.Config
}

// Resolve discovers the export in pkg and loads the config file.
//
// An explicit configPath must exist. Otherwise luadecl.toml in the package
// directory is used when present.
func Resolve(pkg, export, configPath string) (*Target, error) {
	result, err := discover.Find(pkg)
	if err != nil {
		return nil, errors.Wrap(err, "discover")
	}
	exp, err := discover.SelectExport(result.Exports, export)
	if err != nil {
		return nil, err
	}

	t := &Target{Package: result, Export: exp}

	path := configPath
	if path == "" {
		candidate := filepath.Join(result.Dir, luagen.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		return t, nil
	}
	if path, err = filepath.Abs(path); err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}
	cfg, err := luagen.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	t.ConfigFile = path
	t.Config = cfg
	return t, nil
}

// RunnerOptions returns the runner options shared by every command.
func (t *Target) RunnerOptions(noConfig bool) runner.Options {
	opts := runner.Options{
		Export:     *t.Export,
		ConfigFile: t.ConfigFile,
		NoConfig:   noConfig,
		PkgDir:     t.Package.Dir,
		PkgPath:    t.Package.PackagePath,
		PkgName:    t.Package.PackageName,
	}
	if t.Package.ConfigFunc != nil {
		opts.ConfigFunc = t.Package.ConfigFunc.Name
	}
	return opts
}
