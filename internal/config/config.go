// Package config merges viewer settings from built-in defaults, the
// user's configuration file, and per-invocation overrides into the
// config map the browser viewer consumes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// FileName is the user configuration file kept in the home directory.
const FileName = ".ocpvscode_standalone"

// colorKeys are the settings validated as colors when given in hex form.
var colorKeys = []string{
	"default_edgecolor",
	"default_color",
	"default_thickedgecolor",
	"default_facecolor",
	"default_vertexcolor",
}

// Defaults returns a fresh copy of the built-in viewer settings.
func Defaults() map[string]any {
	return map[string]any{
		"debug":      false,
		"no_glass":   false,
		"no_tools":   false,
		"tree_width": 240,
		"theme":      "browser",
		"control":    "trackball",
		"modifier_keys": map[string]any{
			"shift": "shiftKey",
			"ctrl":  "ctrlKey",
			"meta":  "metaKey",
			"alt":   "altKey",
		},
		"new_tree_behavior":      true,
		"pan_speed":              0.5,
		"rotate_speed":           1.0,
		"zoom_speed":             0.5,
		"axes":                   false,
		"axes0":                  false,
		"grid_xy":                false,
		"grid_xz":                false,
		"grid_yz":                false,
		"perspective":            false,
		"transparent":            false,
		"black_edges":            false,
		"collapse":               "R",
		"reset_camera":           "RESET",
		"up":                     "Z",
		"ticks":                  5,
		"center_grid":            false,
		"grid_font_size":         12,
		"default_opacity":        0.5,
		"explode":                false,
		"default_edgecolor":      "#808080",
		"default_color":          "#e8b024",
		"default_thickedgecolor": "MediumOrchid",
		"default_facecolor":      "Violet",
		"default_vertexcolor":    "MediumOrchid",
		"angular_tolerance":      0.2,
		"deviation":              0.1,
		"ambient_intensity":      1.0,
		"direct_intensity":       1.1,
		"metalness":              0.3,
		"roughness":              0.65,
	}
}

// DefaultPath returns the user configuration file path in the home
// directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load produces the viewer config: defaults, then the YAML file at
// path when it exists, then only those overrides that differ from the
// current value. The raw settings are folded into viewer form on the
// way out: the grid_* trio becomes the grid triple, no_glass/no_tools/
// perspective invert into glass/tools/ortho, collapse is stringified
// and reset_camera uppercased.
func Load(path string, overrides map[string]any) (map[string]any, error) {
	local := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fromFile map[string]any
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			for k, v := range fromFile {
				local[k] = v
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	grid := [3]bool{
		boolValue(local["grid_xy"]),
		boolValue(local["grid_xz"]),
		boolValue(local["grid_yz"]),
	}
	for k, v := range overrides {
		// Server placement flags are not viewer settings.
		if k == "port" || k == "host" || k == "create_configfile" {
			continue
		}
		if reflect.DeepEqual(v, local[k]) {
			continue
		}
		switch k {
		case "grid_xy":
			grid[0] = true
		case "grid_xz":
			grid[1] = true
		case "grid_yz":
			grid[2] = true
		default:
			local[k] = v
		}
	}
	local["grid"] = grid

	cfg := make(map[string]any, len(local))
	for k, v := range local {
		switch k {
		case "grid_xy", "grid_xz", "grid_yz":
			// Replaced by the grid triple.
		case "collapse":
			cfg["collapse"] = fmt.Sprint(v)
		case "no_glass":
			cfg["glass"] = !boolValue(v)
		case "no_tools":
			cfg["tools"] = !boolValue(v)
		case "perspective":
			cfg["ortho"] = !boolValue(v)
		case "reset_camera":
			cfg["reset_camera"] = strings.ToUpper(fmt.Sprint(v))
		default:
			cfg[k] = v
		}
	}

	// Older config files predate the alt modifier.
	if mk, ok := cfg["modifier_keys"].(map[string]any); ok {
		if _, present := mk["alt"]; !present {
			mk["alt"] = "altKey"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that hex color settings parse. Named colors pass
// through untouched; the viewer resolves those itself.
func validate(cfg map[string]any) error {
	var errs []string
	for _, key := range colorKeys {
		s, ok := cfg[key].(string)
		if !ok || !strings.HasPrefix(s, "#") {
			continue
		}
		if _, err := colorful.Hex(s); err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid color %q", key, s))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Write writes the built-in defaults as YAML to path, seeding a user
// configuration file.
func Write(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}
