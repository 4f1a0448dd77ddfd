// Package hydrate reads the props a server render embedded in its page.
package hydrate

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
)

var ErrPropsNotFound = errors.New("props script not found")

// ExtractProps parses a rendered page and decodes its embedded props.
func ExtractProps(r io.Reader) (core.Props, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &core.SerializationError{Op: "parse page", Err: err}
	}

	node := findByID(doc, core.PropsScriptID)
	if node == nil {
		return nil, ErrPropsNotFound
	}

	var text strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}

	var props core.Props
	if err := json.Unmarshal([]byte(text.String()), &props); err != nil {
		return nil, &core.SerializationError{Op: "decode props", Err: err}
	}
	if props == nil {
		props = core.Props{}
	}
	return props, nil
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
