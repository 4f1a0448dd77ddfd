package bifrostgql

import (
	"io"

	"github.com/3-lines-studio/bifrost-graphql/internal/adapters/hydrate"
)

var ErrPropsNotFound = hydrate.ErrPropsNotFound

// ExtractProps reads the props a server render embedded in its page.
func ExtractProps(r io.Reader) (Props, error) {
	return hydrate.ExtractProps(r)
}
