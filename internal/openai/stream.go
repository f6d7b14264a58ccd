package openai

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DefaultStreamChunkSize is the number of characters carried by one content
// chunk. Policy knob, not a protocol requirement.
const DefaultStreamChunkSize = 500

// DoneSentinel terminates every synthetic stream.
const DoneSentinel = "[DONE]"

// StreamSynthesizer re-chunks an already-fully-received completion text into
// an OpenAI chat.completion.chunk event stream. The upstream call is always
// non-streaming; streaming toward the caller is synthesized here.
type StreamSynthesizer struct {
	ChunkSize int
}

// Synthesize emits, in order: one role-announcement chunk, one content chunk
// per fixed-size slice of text, one terminal finish_reason:"stop" chunk, and
// the [DONE] sentinel. All chunks share one id and created timestamp. emit is
// called once per event with the encoded data payload; the caller is expected
// to flush each one immediately. Empty text still produces the role and
// terminal chunks.
func (s StreamSynthesizer) Synthesize(text, model string, emit func(data string)) {
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultStreamChunkSize
	}
	id := NewCompletionID()
	created := time.Now().Unix()
	model = ModelOrDefault(model)

	chunk := func(delta Delta, finish *string) string {
		return encodeJSON(ChatCompletionChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []ChunkChoice{
				{
					Index:        0,
					Delta:        delta,
					Logprobs:     nil,
					FinishReason: finish,
				},
			},
		})
	}

	emit(chunk(Delta{Role: "assistant"}, nil))
	for _, slice := range splitChunks(text, size) {
		emit(chunk(Delta{Content: slice}, nil))
	}
	stop := "stop"
	emit(chunk(Delta{}, &stop))
	emit(DoneSentinel)
}

// splitChunks partitions text into contiguous slices of at most size
// characters, preserving original order. Splits on rune boundaries so
// multi-byte characters are never torn across chunks.
func splitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func encodeJSON(v interface{}) string {
	buf := bytes.Buffer{}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}
