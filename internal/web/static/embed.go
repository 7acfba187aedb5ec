package static

import (
	_ "embed"
)

//go:embed index.html
var indexHTML []byte

// Index returns the live display page.
func Index() []byte {
	return indexHTML
}
