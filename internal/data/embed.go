// Package data embeds the default 1962 calendar: one JSON document per
// temporal season and the sanctoral cycle in YAML.
package data

import "embed"

//go:embed temporal/*.json sanctoral.yaml
var FS embed.FS
