package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generate"
)

// ResourceType is the JSON:API type of generation resources.
const ResourceType = "generatetemplate"

const contentType = "application/vnd.api+json"

// Document is a JSON:API request or response document.
type Document struct {
	Data   *Resource `json:"data,omitempty"`
	Errors []Error   `json:"errors,omitempty"`
}

// Resource is a JSON:API resource object.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Error is a JSON:API error object.
type Error struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// GenerateAttributes are the attributes of a generation request.
type GenerateAttributes struct {
	Generator string         `json:"generator"`
	Options   map[string]any `json:"options"`
	Answers   map[string]any `json:"answers"`
	Args      []string       `json:"args"`
}

type generateDocument struct {
	Data *struct {
		Type       string             `json:"type"`
		Attributes GenerateAttributes `json:"attributes"`
	} `json:"data"`
}

var (
	errBadRequest  = errors.New("api: malformed request")
	errRateLimited = errors.New("api: rate limit exceeded")
)

// decodeRequest reads a generation request document from r.
func decodeRequest(r io.Reader) (cache.Request, error) {
	var doc generateDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return cache.Request{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if doc.Data == nil {
		return cache.Request{}, fmt.Errorf("%w: missing data", errBadRequest)
	}
	if doc.Data.Type != ResourceType {
		return cache.Request{}, fmt.Errorf("%w: type must be %q", errBadRequest, ResourceType)
	}

	a := doc.Data.Attributes
	opts, err := stringify(a.Options)
	if err != nil {
		return cache.Request{}, fmt.Errorf("%w: options: %v", errBadRequest, err)
	}
	answers, err := stringify(a.Answers)
	if err != nil {
		return cache.Request{}, fmt.Errorf("%w: answers: %v", errBadRequest, err)
	}
	return cache.NewRequest(a.Generator, opts, answers, a.Args), nil
}

// stringify converts JSON values to the string form used in cache keys.
func stringify(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			out[k] = v
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

func writeDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeDocument(w, status, Document{Errors: []Error{{
		Status: fmt.Sprint(status),
		Code:   code,
		Title:  http.StatusText(status),
		Detail: err.Error(),
	}}})
}

// errorStatus maps a generation error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, cache.ErrMissingGenerator),
		errors.Is(err, cache.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, generate.ErrLockTimeout):
		return http.StatusServiceUnavailable, "lock_timeout"
	case errors.Is(err, generate.ErrLockFailed):
		return http.StatusInternalServerError, "lock_failed"
	case errors.Is(err, generate.ErrInstallFailed):
		return http.StatusBadGateway, "install_failed"
	case errors.Is(err, generate.ErrNotFound):
		return http.StatusNotFound, "generator_not_found"
	case errors.Is(err, generate.ErrGenerationFailed):
		return http.StatusUnprocessableEntity, "generation_failed"
	case errors.Is(err, generate.ErrPackagingFailed):
		return http.StatusInternalServerError, "packaging_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
