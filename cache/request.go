package cache

import (
	"maps"
	"slices"
	"strings"
)

// Request describes one template generation: a generator plus the options,
// answers and positional arguments passed to it.
//
// A Request is immutable once built with NewRequest; the accessors return
// copies so callers cannot mutate the identity used for caching.
type Request struct {
	generatorID string
	options     map[string]string
	answers     map[string]string
	arguments   []string
}

// NewRequest builds a Request. Nil maps and slices are treated as empty.
func NewRequest(generatorID string, options, answers map[string]string, arguments []string) Request {
	return Request{
		generatorID: strings.TrimSpace(generatorID),
		options:     cloneMap(options),
		answers:     cloneMap(answers),
		arguments:   slices.Clone(nonNil(arguments)),
	}
}

// GeneratorID returns the generator identifier, e.g. "generator-node:app".
func (r Request) GeneratorID() string { return r.generatorID }

// Options returns a copy of the generator options.
func (r Request) Options() map[string]string { return cloneMap(r.options) }

// Answers returns a copy of the pre-supplied prompt answers.
func (r Request) Answers() map[string]string { return cloneMap(r.answers) }

// Arguments returns a copy of the positional arguments, in order.
func (r Request) Arguments() []string { return slices.Clone(nonNil(r.arguments)) }

// Validate checks that the request can be keyed.
func (r Request) Validate() error {
	if r.generatorID == "" {
		return ErrMissingGenerator
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
