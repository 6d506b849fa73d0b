package luagen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/broady/luadecl/luagen/luals"
)

// ConfigFileName is the project file read by the CLI when present.
const ConfigFileName = "luadecl.toml"

// Config holds the configuration for definition file generation.
type Config struct {
	// OutDir is the directory where definition files are written.
	// e.g. "./types"
	OutDir string `toml:"out_dir"`

	// Extension is appended to each group name to form the file name.
	// Must start with a dot. Default: ".d.lua"
	Extension string `toml:"extension" validate:"omitempty,startswith=."`

	// IndentSize is the number of spaces per table nesting level.
	// Default: 2
	IndentSize int `toml:"indent_size" validate:"gte=0,lte=8"`

	// Frontmatter is added as comment lines below the @meta header of every
	// file, e.g. "Code generated by luadecl. DO NOT EDIT."
	Frontmatter string `toml:"frontmatter"`

	// OmitComments drops doc strings from the output.
	OmitComments bool `toml:"omit_comments"`

	// Groups limits generation to the named groups. Empty means all.
	Groups []string `toml:"groups" validate:"dive,required"`

	// CheckSyntax parses every generated file as Lua before it is written.
	CheckSyntax bool `toml:"check_syntax"`

	// ContinueOnError writes the groups that rendered successfully when
	// other groups fail. By default a failing group aborts the whole run
	// before anything is written.
	ContinueOnError bool `toml:"continue_on_error"`

	// Prune removes files in OutDir that carry Extension but belong to no
	// generated group.
	Prune bool `toml:"prune"`

	// Parallelism bounds how many groups render at once.
	// Zero means one per group.
	Parallelism int `toml:"parallelism" validate:"gte=0"`
}

var validate = validator.New()

// Validate reports invalid settings.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.WithHint(
		errors.Newf("invalid config: %s", strings.Join(msgs, "; ")),
		"check "+ConfigFileName+" and the command line flags",
	)
}

// LoadConfig reads a TOML config file. Keys that do not map to a Config
// field are an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.WithHint(
			errors.Newf("load %s: unknown keys: %s", path, strings.Join(keys, ", ")),
			"see the Config type for the supported keys",
		)
	}
	return cfg, nil
}

// applyConfigDefaults returns a copy of cfg with defaults filled in.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Extension == "" {
		cfg.Extension = luals.DefaultExtension
	}
	if cfg.IndentSize == 0 {
		cfg.IndentSize = 2
	}
	return cfg
}

func (c Config) writerConfig() luals.Config {
	return luals.Config{
		IndentSize:   c.IndentSize,
		Frontmatter:  c.Frontmatter,
		OmitComments: c.OmitComments,
	}
}
