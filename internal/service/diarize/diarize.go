// Package diarize reassembles word-level speaker labels into coherent,
// ordered text segments.
package diarize

import (
	"encoding/json"
	"strconv"
	"strings"

	"voicedine-service/internal/models"
	"voicedine-service/internal/service/stt"
)

// Segment merges contiguous runs of words sharing a speaker index into
// ordered segments. Words with empty text are dropped without breaking the
// current run. When words is empty and flatText is non-empty, the flat
// transcript becomes a single segment attributed to speaker 0. When both
// are empty the result is empty: a flush window can legitimately contain
// silence.
//
// Within one result no two adjacent segments share a speaker index, and the
// concatenation of segment texts preserves the input word order.
func Segment(words []stt.Word, flatText string) []models.Segment {
	var (
		segments []models.Segment
		acc      []string
		current  int
		started  bool
	)

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		if started && w.Speaker != current {
			segments = append(segments, models.Segment{
				Text:    strings.Join(acc, " "),
				Speaker: current,
			})
			acc = acc[:0]
		}
		current = w.Speaker
		started = true
		acc = append(acc, text)
	}
	if len(acc) > 0 {
		segments = append(segments, models.Segment{
			Text:    strings.Join(acc, " "),
			Speaker: current,
		})
	}

	if len(segments) == 0 {
		if flat := strings.TrimSpace(flatText); flat != "" {
			return []models.Segment{{Text: flat, Speaker: 0}}
		}
	}
	return segments
}

// SpeakerIndex normalizes a provider speaker label to a plain integer.
// Providers variously report an integer, a numeric string, or a string of
// the form "speaker_<N>"; anything unparsable defaults to 0. This is the
// single normalization point: the rest of the pipeline only ever sees
// integers.
func SpeakerIndex(label any) int {
	switch v := label.(type) {
	case nil:
		return 0
	case int:
		return clamp(v)
	case int32:
		return clamp(int(v))
	case int64:
		return clamp(int(v))
	case float64:
		return clamp(int(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return clamp(int(n))
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(v), "speaker_")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return clamp(n)
	default:
		return 0
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
