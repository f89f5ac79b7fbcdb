package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generate"
	"github.com/jonwraymond/templategen/observe"
)

// KeyHeader carries the cache key of a served artifact.
const KeyHeader = "X-Template-Key"

type handlers struct {
	gen         Generator
	logger      observe.Logger
	maxBody     int64
	syncTimeout time.Duration
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request) (cache.Request, bool) {
	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return cache.Request{}, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return cache.Request{}, false
	}
	return req, true
}

// generateSync builds the artifact if needed and streams it.
func (h *handlers) generateSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	key, err := h.gen.Key(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.syncTimeout)
	defer cancel()

	loc, err := h.gen.GenerateSync(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// The wait ended but the build goes on; point the client at
			// the poll URL.
			h.accepted(w, r, key, generate.StateBuilding)
			return
		}
		h.fail(w, r, err)
		return
	}
	h.serveArtifact(w, r, key, loc)
}

// generateAsync starts a build and answers with the key to poll.
func (h *handlers) generateAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	key, err := h.gen.GenerateAsync(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	state := h.gen.Status(key)
	if state == generate.StateAbsent {
		state = generate.StateBuilding
	}
	h.accepted(w, r, key, state)
}

// fetch serves a published artifact or reports the key's state.
func (h *handlers) fetch(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(chi.URLParam(r, "key"))
	if err := cache.ValidateKey(key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if loc, ok := h.gen.Locate(key); ok {
		h.serveArtifact(w, r, key, loc)
		return
	}
	h.accepted(w, r, key, h.gen.Status(key))
}

func (h *handlers) accepted(w http.ResponseWriter, r *http.Request, key cache.Key, state generate.State) {
	attrs := map[string]any{"status": statusName(state)}
	if state == generate.StateFailed {
		if err := h.gen.LastFailure(key); err != nil {
			_, code := errorStatus(err)
			attrs["error"] = code
			attrs["detail"] = err.Error()
		}
	}
	w.Header().Set("Location", path.Join("/api", ResourceType, key.String()))
	writeDocument(w, http.StatusAccepted, Document{Data: &Resource{
		Type:       ResourceType,
		ID:         key.String(),
		Attributes: attrs,
	}})
}

func (h *handlers) serveArtifact(w http.ResponseWriter, r *http.Request, key cache.Key, loc string) {
	f, err := os.Open(loc)
	if err != nil {
		h.fail(w, r, fmt.Errorf("open artifact: %w", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, fmt.Errorf("stat artifact: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key.String()+".zip"))
	w.Header().Set(KeyHeader, key.String())
	http.ServeContent(w, r, key.String()+".zip", info.ModTime(), f)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "generation request failed",
			observe.F("code", code),
			observe.F("error", err),
		)
	}
	if code == "internal" {
		err = errors.New("internal error")
	}
	writeError(w, status, code, err)
}

// statusName is the polled status of a key. A missing artifact with no
// known build is reported as pending, since another process may own it.
func statusName(s generate.State) string {
	switch s {
	case generate.StateLocked, generate.StateBuilding:
		return "building"
	case generate.StatePresent:
		return "present"
	case generate.StateFailed:
		return "failed"
	default:
		return "pending"
	}
}
