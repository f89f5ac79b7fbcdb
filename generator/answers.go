package generator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Question is a prompt asked by a generator.
type Question struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Message string   `json:"message,omitempty"`
	Default any      `json:"default,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// Choice is one option of a list-style question.
type Choice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// AnswerProvider answers generator questions without user interaction.
//
// Contract:
// - Must return promptly; never waits for input.
// - Errors: a question that cannot be answered yields ErrUnanswerable.
type AnswerProvider interface {
	Answer(q Question) (any, error)
}

// StaticAnswers answers from a fixed map keyed by question name. Missing
// answers fall back to the question's default.
type StaticAnswers map[string]string

// Answer implements AnswerProvider.
func (a StaticAnswers) Answer(q Question) (any, error) {
	if raw, ok := a[q.Name]; ok {
		return convertAnswer(q, raw)
	}
	if q.Default != nil {
		return q.Default, nil
	}
	if isListType(q.Type) && len(q.Choices) > 0 {
		return q.Choices[0].Value, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnanswerable, q.Name)
}

func convertAnswer(q Question, raw string) (any, error) {
	switch q.Type {
	case "confirm":
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %q expects a boolean, got %q", ErrInvalidAnswer, q.Name, raw)
		}
		return b, nil

	case "number":
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q expects a number, got %q", ErrInvalidAnswer, q.Name, raw)
		}
		return f, nil

	case "checkbox":
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "[") {
			var values []any
			if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
				return nil, fmt.Errorf("%w: %q expects a JSON array: %v", ErrInvalidAnswer, q.Name, err)
			}
			return values, nil
		}
		values := []any{}
		for _, part := range strings.Split(trimmed, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		return values, nil

	default:
		return raw, nil
	}
}

func isListType(t string) bool {
	switch t {
	case "list", "rawlist", "expand":
		return true
	}
	return false
}

// Ensure StaticAnswers implements AnswerProvider
var _ AnswerProvider = StaticAnswers(nil)
