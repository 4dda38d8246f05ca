package catalog

import (
	_ "embed"
	"strings"
)

// embeddedList is the BDIX server list shipped with the binary, used when no
// catalog file is configured. Refresh it with the fetch command.
//
//go:embed bdix.txt
var embeddedList string

// Default returns the catalog compiled into the binary.
func Default() []Endpoint {
	endpoints, err := Parse(strings.NewReader(embeddedList))
	if err != nil {
		// the embedded list is parsed from an in-memory string; Parse can
		// only fail on reader errors, which cannot happen here
		return nil
	}
	return endpoints
}
