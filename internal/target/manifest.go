package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file that marks a module root.
const ManifestName = "basalt.toml"

// Manifest is a loaded basalt.toml together with where it was found.
type Manifest struct {
	// Path is the manifest file itself; Root the directory holding it.
	Path   string
	Root   string
	Config Config
}

// Config is the decoded manifest body.
type Config struct {
	Package PackageConfig `toml:"package"`
	Target  TargetConfig  `toml:"target"`
	Emit    EmitConfig    `toml:"emit"`
	Decls   []DeclConfig  `toml:"decl"`
}

// PackageConfig is the required [package] table.
type PackageConfig struct {
	Name string `toml:"name"`
}

// TargetConfig is the optional [target] table. Absent fields fall back to
// the default target.
type TargetConfig struct {
	Name             string `toml:"name"`
	WordSize         int    `toml:"wordsize"`
	Interop          bool   `toml:"interop"`
	DynamicSelectors bool   `toml:"dynamic-selectors"`
}

// EmitConfig is the optional [emit] table.
type EmitConfig struct {
	// Output is the module file to write, relative to the module root.
	Output string `toml:"output"`
}

// DeclConfig is one [[decl]] entry: a declaration to emit metadata for.
// Member specs are compact strings resolved when the run builds its
// declaration set: fields as "name: type", cases as "name" or
// "name: payload", generic parameters as "T" or "T: Proto + Proto".
type DeclConfig struct {
	Name       string   `toml:"name"`
	Kind       string   `toml:"kind"`
	Foreign    bool     `toml:"foreign"`
	Superclass string   `toml:"superclass"`
	Generics   []string `toml:"generics"`
	Fields     []string `toml:"fields"`
	Cases      []string `toml:"cases"`
	Methods    []string `toml:"methods"`
}

// LoadManifest walks up from startDir looking for basalt.toml and loads the
// nearest one. ok is false when no manifest exists on the path to the
// filesystem root.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// OutputPath resolves [emit].output against the module root, or returns ""
// when the manifest names no output file.
func (m *Manifest) OutputPath() string {
	out := strings.TrimSpace(m.Config.Emit.Output)
	if out == "" {
		return ""
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(m.Root, filepath.FromSlash(out))
}

// ResolveTarget produces the target the manifest selects, with defaults for
// absent [target] fields.
func (c Config) ResolveTarget() (Target, error) {
	t := Default()
	if c.Target.Name != "" {
		t.Name = c.Target.Name
	}
	if c.Target.WordSize != 0 {
		t.WordSize = c.Target.WordSize
	}
	t.Interop = c.Target.Interop
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	for i, d := range cfg.Decls {
		if strings.TrimSpace(d.Name) == "" {
			return Config{}, fmt.Errorf("%s: [[decl]] #%d: missing name", path, i+1)
		}
		if strings.TrimSpace(d.Kind) == "" {
			return Config{}, fmt.Errorf("%s: decl %q: missing kind", path, d.Name)
		}
	}
	if _, err := cfg.ResolveTarget(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
