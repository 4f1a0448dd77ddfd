package http

import (
	"bytes"
	"errors"
	"html"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
	"github.com/3-lines-studio/bifrost-graphql/internal/usecase"
)

type PageHandler struct {
	wrapper *usecase.Wrapper
	title   string
	isDev   bool
	logger  zerolog.Logger
}

type PageHandlerOptions struct {
	Title  string
	IsDev  bool
	Logger zerolog.Logger
}

func NewPageHandler(wrapper *usecase.Wrapper, opts PageHandlerOptions) http.Handler {
	return &PageHandler{
		wrapper: wrapper,
		title:   opts.Title,
		isDev:   opts.IsDev,
		logger:  opts.Logger,
	}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	rc := core.NewRequestContext(req)

	props, err := h.wrapper.Prepare(ctx, rc)
	if err != nil {
		h.handleError(w, req, err)
		return
	}

	inst, err := h.wrapper.Construct(props)
	if err != nil {
		h.handleError(w, req, err)
		return
	}

	var body bytes.Buffer
	if err := inst.Render(ctx, &body); err != nil {
		h.handleError(w, req, err)
		return
	}

	page, err := core.RenderHTMLShell(core.Shell{
		Title: h.title,
		Body:  body.String(),
		Props: props,
	})
	if err != nil {
		h.handleError(w, req, err)
		return
	}

	h.serveHTML(w, page)
}

func (h *PageHandler) serveHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (h *PageHandler) handleError(w http.ResponseWriter, req *http.Request, err error) {
	var redirect core.RedirectError
	if errors.As(err, &redirect) {
		status := redirect.RedirectStatusCode()
		if status == 0 {
			status = http.StatusFound
		}
		http.Redirect(w, req, redirect.RedirectURL(), status)
		return
	}

	h.logger.Error().Err(err).Str("path", req.URL.Path).Msg("page render failed")
	h.serveError(w, err)
}

func (h *PageHandler) serveError(w http.ResponseWriter, err error) {
	data := core.ErrorData{
		Message: err.Error(),
		IsDev:   h.isDev,
	}

	var buf bytes.Buffer
	if err := core.ErrorTemplate.Execute(&buf, data); err != nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<!doctype html><html><body><pre>" + html.EscapeString(data.Message) + "</pre></body></html>"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(buf.Bytes())
}
