// Package site loads site-wide configuration defaults, the equivalent of
// autoconf's config.site, from a stack of optional YAML files.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	siteFileName = "config.site.yaml"
	siteDirName  = "canconfig"
)

// Defaults are site-provided fallbacks for the configuration inputs.
// Command-line flags and environment variables take precedence.
type Defaults struct {
	Prefix   string   `yaml:"prefix,omitempty"`
	Host     string   `yaml:"host,omitempty"`
	CC       string   `yaml:"cc,omitempty"`
	CPPFlags []string `yaml:"cppflags,omitempty"`
	CFlags   []string `yaml:"cflags,omitempty"`
	LDFlags  []string `yaml:"ldflags,omitempty"`
	Libs     []string `yaml:"libs,omitempty"`
}

// Level is the precedence level of a site file.
type Level string

const (
	LevelSystem   Level = "system"
	LevelUser     Level = "user"
	LevelExplicit Level = "explicit"
)

// Layer describes a discovered site file and its load status.
type Layer struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  Level
	Loaded bool
}

// DiscoverOptions controls how site paths are discovered.
type DiscoverOptions struct {
	// SystemPath and UserPath override the OS defaults. Empty means the
	// default; a nonexistent path skips the layer.
	SystemPath string
	UserPath   string

	// ExplicitPath is the CONFIG_SITE file, loaded last.
	ExplicitPath string

	// Getenv resolves the default user path. Nil means os.Getenv.
	Getenv func(string) string
}

// UserConfigDir mirrors os.UserConfigDir but reads the environment through
// getenv. It returns "" when no directory can be determined.
func UserConfigDir(goos string, getenv func(string) string) string {
	switch goos {
	case "windows":
		return getenv("AppData")
	case "darwin", "ios":
		if home := getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support")
		}
		return ""
	case "plan9":
		if home := getenv("home"); home != "" {
			return filepath.Join(home, "lib")
		}
		return ""
	}
	if dir := getenv("XDG_CONFIG_HOME"); filepath.IsAbs(dir) {
		return dir
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}

// DiscoverPaths returns the site files to check, lowest precedence first,
// deduplicated by absolute path.
func DiscoverPaths(opts DiscoverOptions) []Layer {
	var layers []Layer
	seen := make(map[string]bool)

	add := func(level Level, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, Layer{Path: path, Level: level})
	}

	sys := opts.SystemPath
	if sys == "" {
		sys = filepath.Join("/etc", siteDirName, siteFileName)
	}
	add(LevelSystem, sys)

	user := opts.UserPath
	if user == "" {
		getenv := opts.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		if dir := UserConfigDir(runtime.GOOS, getenv); dir != "" {
			user = filepath.Join(dir, siteDirName, siteFileName)
		}
	}
	add(LevelUser, user)

	add(LevelExplicit, opts.ExplicitPath)

	return layers
}

// Result holds the merged defaults and per-layer status.
type Result struct {
	Defaults Defaults
	Layers   []Layer
}

// Load reads every discovered layer and merges them in order. Missing
// system and user files are skipped; a missing explicit file is an error,
// as is any file that fails to parse.
func Load(opts DiscoverOptions) (*Result, error) {
	r := &Result{}
	for _, layer := range DiscoverPaths(opts) {
		d, err := loadFile(layer.Path)
		if os.IsNotExist(err) && layer.Level != LevelExplicit {
			r.Layers = append(r.Layers, layer)
			continue
		}
		if err != nil {
			layer.Err = err
			r.Layers = append(r.Layers, layer)
			return r, fmt.Errorf("loading %s site file %s: %w", layer.Level, layer.Path, err)
		}
		layer.Loaded = true
		r.Layers = append(r.Layers, layer)
		r.Defaults = Merge(r.Defaults, *d)
	}
	return r, nil
}

func loadFile(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &d, nil
}

// Merge combines two layers where overlay takes precedence:
//   - scalars: overlay wins when set
//   - flag lists: concatenate (base first, then overlay)
func Merge(base, overlay Defaults) Defaults {
	out := base
	if overlay.Prefix != "" {
		out.Prefix = overlay.Prefix
	}
	if overlay.Host != "" {
		out.Host = overlay.Host
	}
	if overlay.CC != "" {
		out.CC = overlay.CC
	}
	out.CPPFlags = concat(base.CPPFlags, overlay.CPPFlags)
	out.CFlags = concat(base.CFlags, overlay.CFlags)
	out.LDFlags = concat(base.LDFlags, overlay.LDFlags)
	out.Libs = concat(base.Libs, overlay.Libs)
	return out
}

func concat(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// EnvDisabled returns true if CANCONFIG_NO_SITE is set to "1" or "true".
func EnvDisabled(getenv func(string) string) bool {
	v := strings.ToLower(strings.TrimSpace(getenv("CANCONFIG_NO_SITE")))
	return v == "1" || v == "true"
}
