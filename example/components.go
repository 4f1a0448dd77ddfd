// Package example is the demonstration harness: a menu, a posts list and
// one page per way of configuring the GraphQL client.
package example

import (
	"bytes"
	"context"
	"html/template"
	"io"

	bifrostgql "github.com/3-lines-studio/bifrost-graphql"
)

const linkClass = "link white dib bg-blue hover-bg-blue bg-animate br2 mr2 pv1 ph2"

var PostsQuery = bifrostgql.MustParseOperation(`
	query PostsQuery {
		allPosts(first: 10) {
			id
			title
			url
		}
	}
`)

type link struct {
	Href  string
	Label string
}

var menuLinks = []link{
	{Href: "/", Label: "Home"},
	{Href: "/basic", Label: "Basic Example"},
	{Href: "/simple", Label: "Simple Settings Example"},
	{Href: "/function", Label: "Function Settings Example"},
}

var templates = template.Must(template.New("menu").Parse(`<div class="pv3">
{{- range .Links}}<a class="{{$.Class}}" href="{{.Href}}">{{.Label}}</a>{{end -}}
</div>`))

func init() {
	template.Must(templates.New("posts").Parse(`<div>
{{- if .Err}}<div class="error">{{.Err}}</div>
{{- else if .Loading}}<div>Loading</div>
{{- else}}{{range .Posts}}<div><a href="{{.url}}">{{.title}}</a></div>{{end}}{{end -}}
</div>`))
	template.Must(templates.New("root").Parse(`<div class="{{.Class}}">{{.Body}}</div>`))
}

// Menu links every example page.
var Menu = bifrostgql.ComponentFunc(func(ctx context.Context, w io.Writer, props bifrostgql.Props) error {
	return templates.ExecuteTemplate(w, "menu", map[string]any{
		"Links": menuLinks,
		"Class": linkClass,
	})
})

// Posts lists the first posts from the client in context. Without a
// client, or before its data arrives, it renders as loading.
var Posts = bifrostgql.ComponentFunc(func(ctx context.Context, w io.Writer, props bifrostgql.Props) error {
	view := map[string]any{"Loading": true}

	if client := bifrostgql.ClientFrom(ctx); client != nil {
		res := client.Read(ctx, PostsQuery, nil)
		view["Loading"] = res.Loading
		if res.Err != nil {
			view["Err"] = res.Err.Error()
		}
		if res.Data != nil {
			view["Posts"] = res.Data["allPosts"]
		}
	}
	return templates.ExecuteTemplate(w, "posts", view)
})

// Root lays children out in a centred column.
func Root(ctx context.Context, w io.Writer, props bifrostgql.Props, children ...bifrostgql.Component) error {
	var body bytes.Buffer
	for _, child := range children {
		if err := child.Render(ctx, &body, props); err != nil {
			return err
		}
	}
	return templates.ExecuteTemplate(w, "root", map[string]any{
		"Class": "mw7 center ph2",
		"Body":  template.HTML(body.String()),
	})
}

func heading(text string) bifrostgql.Component {
	return bifrostgql.ComponentFunc(func(ctx context.Context, w io.Writer, props bifrostgql.Props) error {
		_, err := io.WriteString(w, `<h1 class="f1">`+template.HTMLEscapeString(text)+`</h1>`)
		return err
	})
}
