package catalog

import (
	_ "embed"
)

//go:embed signals.yaml
var builtinSignals []byte

// Default loads the built-in signal catalog (ids 101-200).
func Default() (*Catalog, error) {
	return parse(builtinSignals)
}
