package generator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PromptMarker prefixes protocol lines written by the launcher. Lines
// without it are ordinary generator output.
const PromptMarker = "@@templategen-prompt@@ "

const maxLineSize = 1 << 20

// PromptRequest is one batch of questions sent by the launcher.
type PromptRequest struct {
	Type      string     `json:"type"`
	Questions []Question `json:"questions"`
}

// PromptReply answers a PromptRequest. Error is set instead of Answers when
// any question could not be answered.
type PromptReply struct {
	Answers map[string]any `json:"answers,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ServePrompts reads launcher output from r until EOF, answering each
// prompt request on w with p. Other lines are copied to out. An
// unanswerable question is reported to the launcher, which fails the run.
func ServePrompts(r io.Reader, w io.Writer, p AnswerProvider, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for sc.Scan() {
		line := sc.Text()
		payload, ok := strings.CutPrefix(line, PromptMarker)
		if !ok {
			fmt.Fprintln(out, line)
			continue
		}

		reply := answerRequest(payload, p)
		data, err := json.Marshal(reply)
		if err != nil {
			data, _ = json.Marshal(PromptReply{Error: err.Error()})
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("generator: writing prompt reply: %w", err)
		}
	}
	return sc.Err()
}

func answerRequest(payload string, p AnswerProvider) PromptReply {
	var req PromptRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return PromptReply{Error: fmt.Sprintf("malformed prompt request: %v", err)}
	}
	answers := make(map[string]any, len(req.Questions))
	for _, q := range req.Questions {
		v, err := p.Answer(q)
		if err != nil {
			return PromptReply{Error: err.Error()}
		}
		answers[q.Name] = v
	}
	return PromptReply{Answers: answers}
}
