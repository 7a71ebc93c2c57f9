package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a commented starter configuration to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o644)
}

const template = `# directory holding unit files and their .meta sidecars
content_root = "content"
unit_extension = ".unit"
relations_path = "resources/relations.toml"
build_manifest = "build/units.toml"

# editor: compose roots when opened for editing
# player: compose the start root's children at startup
mode = "editor"
start_root = ""

[server]
addr = ":9400"
cors_origins = ["http://localhost:3000"]
# bearer token required on mutating requests; empty disables the check
token = ""

[watch]
enabled = true
debounce = "250ms"
`
