package ai

import (
	"encoding/json"
	"strings"
)

// StreamDecoder incrementally reconstructs model output from a
// server-sent-events byte stream. It is a plain buffering state object so it
// can be driven by any transport and tested on canned byte chunks: feed it
// reads as they arrive and collect the tokens each feed completes.
//
// Events are blocks separated by a blank line, each block one or more
// "data:" lines. A data payload of [DONE] terminates the stream; payloads
// that fail to parse, or whose token field is absent or not a string, are
// skipped so a malformed frame can never abort the stream.
type StreamDecoder struct {
	tail string
	done bool
}

// NewStreamDecoder returns a decoder awaiting its first byte.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Done reports whether the upstream signalled end of stream.
func (d *StreamDecoder) Done() bool {
	return d.done
}

// Feed consumes one chunk of bytes and returns the tokens completed by it,
// in order. A frame may span multiple feeds; the trailing partial block is
// retained for the next call. After the terminator has been seen all
// further input is ignored.
func (d *StreamDecoder) Feed(p []byte) []string {
	if d.done || len(p) == 0 {
		return nil
	}

	data := d.tail + string(p)
	parts := strings.Split(data, "\n\n")
	d.tail = parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	var tokens []string
	for _, block := range parts {
		for _, line := range strings.Split(block, "\n") {
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, "data:") {
				continue
			}

			payload := strings.TrimSpace(trimmed[len("data:"):])
			if payload == "[DONE]" {
				d.done = true
				return tokens
			}

			if token, ok := extractToken(payload); ok {
				tokens = append(tokens, token)
			}
		}
	}

	return tokens
}

func extractToken(payload string) (string, bool) {
	var frame struct {
		Choices []struct {
			Delta struct {
				Content *string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}

	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return "", false
	}
	if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == nil {
		return "", false
	}
	return *frame.Choices[0].Delta.Content, true
}
