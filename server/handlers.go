package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/kurinobu/StringSpotter/font"
	"github.com/kurinobu/StringSpotter/layout"
	"github.com/kurinobu/StringSpotter/render"
)

// Handler serves the rendering and font-management endpoints:
//
//	POST /generate     form: text, fontSize, color, font, lineHeight -> image/png
//	POST /upload-font  multipart field "font"                        -> {"fontName": id}
//	GET  /fonts/{name} raw font bytes for client-side @font-face use
//
// Failures are reported as JSON {"error": message} with a 4xx status
// for caller mistakes and a generic 500 for internal faults.
type Handler struct {
	registry      *font.Registry
	renderTimeout time.Duration
}

// NewHandler creates a Handler backed by the given registry. A
// renderTimeout of zero disables the per-request render deadline.
func NewHandler(registry *font.Registry, renderTimeout time.Duration) *Handler {
	return &Handler{registry: registry, renderTimeout: renderTimeout}
}

// Routes returns the mux with every endpoint mounted.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", h.handleGenerate)
	mux.HandleFunc("/upload-font", h.handleUploadFont)
	mux.HandleFunc("/fonts/", h.handleServeFont)
	return securityHeaders(mux)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	request, err := parseRenderRequest(r)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	asset, err := h.registry.Lookup(request.FontID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	computed, err := layout.Compute(asset, request.Text, request.FontSize, request.LineHeight)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	ctx := r.Context()
	if h.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.renderTimeout)
		defer cancel()
	}
	encoded, err := render.Render(ctx, asset.Font, computed, request.Color)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	filename := fmt.Sprintf("text_%d.png", time.Now().UnixMilli())
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(encoded)
}

func (h *Handler) handleUploadFont(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// the size ceiling is enforced before any parsing: declared
	// lengths are rejected outright, undeclared ones while reading
	if r.ContentLength > MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("font file exceeds the %d MiB limit", MaxUploadBytes>>20))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("font file exceeds the %d MiB limit", MaxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("font")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no font file selected")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeFailure(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "no font file selected")
		return
	}

	asset, err := h.registry.Upload(data, header.Filename)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	Logger().Info("font uploaded", "id", asset.ID, "bytes", len(data),
		"originalName", asset.OriginalName)
	writeJSON(w, http.StatusOK, map[string]string{"fontName": asset.ID})
}

func (h *Handler) handleServeFont(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/fonts/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "font not found")
		return
	}
	asset, err := h.registry.Lookup(name)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", fontContentType(asset.ID))
	_, _ = w.Write(asset.Data)
}

// fontContentType infers the MIME type from the extension preserved
// in the identifier. Built-in assets carry no extension and are
// always TrueType flavoured.
func fontContentType(id string) string {
	switch path.Ext(id) {
	case ".otf":
		return "font/otf"
	case ".ttc":
		return "font/collection"
	default:
		return "font/ttf"
	}
}

// writeFailure maps the core error taxonomy onto HTTP statuses.
// Internal faults are logged with detail but reported generically.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *InputError
	var fontErr *font.ValidationError
	switch {
	case errors.As(err, &inputErr):
		Logger().Warn("invalid input", "path", r.URL.Path, "error", inputErr.Message)
		writeError(w, http.StatusBadRequest, inputErr.Message)
	case errors.As(err, &fontErr):
		Logger().Warn("font rejected", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, fontErr.Reason)
	case errors.Is(err, font.ErrFontNotFound):
		Logger().Warn("font not found", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusNotFound, "font not found")
	default:
		Logger().Error("internal error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
