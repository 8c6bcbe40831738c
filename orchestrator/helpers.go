package orchestrator

import (
	"sort"

	"github.com/attune-labs/conversation-pipeline/clients"
	"github.com/attune-labs/conversation-pipeline/media"
)

// segmentsBySpeaker converts each speaker's diarized utterance spans
// from milliseconds to second-based time segments, in chronological
// order.
func segmentsBySpeaker(tr *clients.Transcript) map[string][]media.TimeSegment {
	out := make(map[string][]media.TimeSegment, len(tr.Speakers))
	for _, u := range tr.Utterances {
		out[u.Speaker] = append(out[u.Speaker], media.TimeSegment{
			Start: float64(u.StartMs) / 1000,
			End:   float64(u.EndMs) / 1000,
		})
	}
	for _, segs := range out {
		sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	}
	return out
}

// fallbackUtterances rebuilds a speaker's utterances from the diarized
// transcript when prosody analysis is unavailable. Emotions stay empty.
func fallbackUtterances(tr *clients.Transcript, label string) []Utterance {
	var out []Utterance
	for _, u := range tr.Utterances {
		if u.Speaker != label {
			continue
		}
		out = append(out, Utterance{
			Text:     u.Text,
			Start:    float64(u.StartMs) / 1000,
			End:      float64(u.EndMs) / 1000,
			Emotions: []EmotionScore{},
		})
	}
	return out
}

func fromProsody(utts []clients.ProsodyUtterance) []Utterance {
	out := make([]Utterance, 0, len(utts))
	for _, u := range utts {
		emotions := make([]EmotionScore, 0, len(u.Emotions))
		for _, e := range u.Emotions {
			emotions = append(emotions, EmotionScore{Name: e.Name, Score: e.Score})
		}
		out = append(out, Utterance{Text: u.Text, Start: u.Start, End: u.End, Emotions: emotions})
	}
	return out
}

func sortUtterances(utts []Utterance) {
	sort.SliceStable(utts, func(i, j int) bool { return utts[i].Start < utts[j].Start })
}

// letterLabel maps 0 -> "A", 1 -> "B", ... continuing with "AA" past "Z".
func letterLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return letterLabel(i/26-1) + string(rune('A'+i%26))
}
