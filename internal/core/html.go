package core

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// PropsScriptID is the element the browser-side session reads props from.
const PropsScriptID = "__BIFROST_PROPS__"

type Shell struct {
	Title string
	Body  string
	Props Props
}

func RenderHTMLShell(shell Shell) (string, error) {
	title := shell.Title
	if title == "" {
		title = "Bifrost"
	}

	props := shell.Props
	if props == nil {
		props = Props{}
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return "", &SerializationError{Op: "encode props", Err: err}
	}

	escapedProps := strings.ReplaceAll(string(propsJSON), "</", "<\\/")

	head := `<meta charset="UTF-8" /><meta name="viewport" content="width=device-width, initial-scale=1.0" />` +
		fmt.Sprintf("<title>%s</title>", html.EscapeString(title))

	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    %s
  </head>
  <body>
    <div id="app">%s</div>
    <script id="%s" type="application/json">%s</script>
  </body>
</html>
`, head, shell.Body, PropsScriptID, escapedProps), nil
}
