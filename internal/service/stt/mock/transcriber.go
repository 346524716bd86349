// Package mock provides a canned stt.Transcriber for local runs and tests
// that must not depend on provider credentials.
package mock

import (
	"context"
	"sync/atomic"

	"voicedine-service/internal/service/stt"
)

// utterances are cycled through, one per flush window. They simulate a
// two-person conversation about where to eat, with speaker changes so the
// segmenter path is exercised end to end.
var utterances = []stt.Result{
	{
		Text: "I'm craving Italian tonight what do you think",
		Words: []stt.Word{
			{Text: "I'm", Speaker: 0}, {Text: "craving", Speaker: 0},
			{Text: "Italian", Speaker: 0}, {Text: "tonight", Speaker: 0},
			{Text: "what", Speaker: 1}, {Text: "do", Speaker: 1},
			{Text: "you", Speaker: 1}, {Text: "think", Speaker: 1},
		},
	},
	{
		Text: "somewhere cheap with outdoor seating",
		Words: []stt.Word{
			{Text: "somewhere", Speaker: 1}, {Text: "cheap", Speaker: 1},
			{Text: "with", Speaker: 1}, {Text: "outdoor", Speaker: 1},
			{Text: "seating", Speaker: 1},
		},
	},
	{
		Text: "I need vegetarian options though",
		Words: []stt.Word{
			{Text: "I", Speaker: 0}, {Text: "need", Speaker: 0},
			{Text: "vegetarian", Speaker: 0}, {Text: "options", Speaker: 0},
			{Text: "though", Speaker: 0},
		},
	},
}

// Transcriber implements stt.Transcriber with deterministic cycling output.
type Transcriber struct {
	counter atomic.Uint64
}

// New creates a mock transcriber.
func New() *Transcriber {
	return &Transcriber{}
}

// Name implements stt.Transcriber.
func (t *Transcriber) Name() string { return "mock" }

// Transcribe implements stt.Transcriber. It never fails and ignores the
// audio content entirely.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := (t.counter.Add(1) - 1) % uint64(len(utterances))
	res := utterances[idx]
	return &res, nil
}
