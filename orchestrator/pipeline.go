// Package orchestrator composes diarization, segment extraction, voice
// identification and prosody analysis into the end-to-end conversation
// pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/attune-labs/conversation-pipeline/clients"
	"github.com/attune-labs/conversation-pipeline/media"
	"github.com/attune-labs/conversation-pipeline/voiceid"
)

var (
	// ErrNoSpeakers means diarization found nothing to analyze.
	ErrNoSpeakers = errors.New("no speakers detected in recording")
	// ErrNoAudioExtracted means no speaker's audio could be cut from the
	// recording, so there is nothing left to analyze.
	ErrNoAudioExtracted = errors.New("no speaker audio could be extracted")
)

// Diarizer splits a recording into speaker-labeled utterances.
// All-or-nothing per call; never returns partial results.
type Diarizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (*clients.Transcript, error)
}

// Embedder computes a fixed-length voice embedding for an audio buffer.
type Embedder interface {
	Embed(ctx context.Context, audio []byte) ([]float64, error)
}

// ProsodyAnalyzer scores a speaker's audio buffer into utterances with
// emotion dimensions.
type ProsodyAnalyzer interface {
	Analyze(ctx context.Context, audio []byte, label string) ([]clients.ProsodyUtterance, error)
}

// Extractor cuts and concatenates time segments of the source recording.
type Extractor interface {
	Extract(ctx context.Context, src []byte, segments []media.TimeSegment) ([]byte, error)
}

// Deps are the pipeline's collaborators. Embedder may be nil when no
// voice identification is wanted.
type Deps struct {
	Diarizer  Diarizer
	Embedder  Embedder
	Prosody   ProsodyAnalyzer
	Extractor Extractor
	Log       *logrus.Entry
}

type Pipeline struct {
	deps      Deps
	threshold float64
}

// NewPipeline wires a pipeline. threshold <= 0 falls back to
// voiceid.MatchThreshold; a nil Deps.Log falls back to a fresh logger.
func NewPipeline(deps Deps, threshold float64) *Pipeline {
	if threshold <= 0 {
		threshold = voiceid.MatchThreshold
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.New())
	}
	return &Pipeline{deps: deps, threshold: threshold}
}

// speakerResult is the tagged join value for one speaker's analysis
// fan-out task. The reducer in Run never sees a partial failure as an
// error: degraded fields carry the fallback values instead.
type speakerResult struct {
	similarity float64
	utterances []Utterance
}

// Run executes the full pipeline on one recording. reference is the
// enrolled owner embedding, or nil when none was supplied. Per-speaker
// failures degrade that speaker's data; only zero diarized speakers or
// zero extracted buffers abort the run.
func (p *Pipeline) Run(ctx context.Context, audio []byte, filename string, reference []float64) (*ConversationAnalysis, error) {
	log := p.deps.Log

	tr, err := p.deps.Diarizer.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, fmt.Errorf("diarizing: %w", err)
	}
	if len(tr.Speakers) == 0 {
		return nil, ErrNoSpeakers
	}
	log.WithFields(logrus.Fields{"speakers": len(tr.Speakers), "utterances": len(tr.Utterances)}).Info("diarization complete")

	speakerAudio := p.extractAll(ctx, audio, tr)
	if len(speakerAudio) == 0 {
		return nil, ErrNoAudioExtracted
	}

	results := p.analyzeAll(ctx, tr, speakerAudio, reference)

	return p.label(tr, results, reference != nil), nil
}

// extractAll cuts every speaker's utterance spans out of the recording
// concurrently. A speaker whose extraction fails is left out of the
// returned map; that is the one legitimate way a speaker drops from the
// run.
func (p *Pipeline) extractAll(ctx context.Context, audio []byte, tr *clients.Transcript) map[string][]byte {
	segments := segmentsBySpeaker(tr)

	buffers := make([][]byte, len(tr.Speakers))
	var g errgroup.Group
	for i, label := range tr.Speakers {
		i, label := i, label
		g.Go(func() error {
			segs := segments[label]
			if len(segs) == 0 {
				p.deps.Log.WithField("speaker", label).Warn("speaker has no utterance spans")
				return nil
			}
			buf, err := p.deps.Extractor.Extract(ctx, audio, segs)
			if err != nil {
				p.deps.Log.WithError(err).WithField("speaker", label).Warn("segment extraction failed, dropping speaker")
				return nil
			}
			buffers[i] = buf
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]byte, len(tr.Speakers))
	for i, label := range tr.Speakers {
		if buffers[i] != nil {
			out[label] = buffers[i]
		}
	}
	return out
}

// analyzeAll runs identity matching and prosody analysis for every
// extracted speaker concurrently, joining on an all-complete barrier.
// Each task's failure is converted into a degraded value at the point of
// occurrence, so the join never needs to special-case partial results.
func (p *Pipeline) analyzeAll(ctx context.Context, tr *clients.Transcript, speakerAudio map[string][]byte, reference []float64) map[string]speakerResult {
	results := make([]speakerResult, len(tr.Speakers))
	var g errgroup.Group
	for i, label := range tr.Speakers {
		buf, ok := speakerAudio[label]
		if !ok {
			continue
		}
		i, label, buf := i, label, buf
		g.Go(func() error {
			results[i] = p.analyzeSpeaker(ctx, tr, label, buf, reference)
			return nil
		})
	}
	_ = g.Wait()

	// A task was launched exactly for the speakers with extracted audio,
	// so the same membership test decides who joins the result set.
	out := make(map[string]speakerResult, len(speakerAudio))
	for i, label := range tr.Speakers {
		if _, ok := speakerAudio[label]; ok {
			out[label] = results[i]
		}
	}
	return out
}

func (p *Pipeline) analyzeSpeaker(ctx context.Context, tr *clients.Transcript, label string, buf []byte, reference []float64) speakerResult {
	log := p.deps.Log.WithField("speaker", label)
	res := speakerResult{}

	if reference != nil && p.deps.Embedder != nil {
		vec, err := p.deps.Embedder.Embed(ctx, buf)
		if err != nil {
			log.WithError(err).Warn("voice embedding failed, treating similarity as 0")
		} else {
			res.similarity = voiceid.CosineSimilarity(reference, vec)
			log.WithField("similarity", res.similarity).Debug("voice identity scored")
		}
	}

	utts, err := p.deps.Prosody.Analyze(ctx, buf, label)
	if err != nil {
		log.WithError(err).Warn("prosody analysis failed, falling back to diarized utterances")
		res.utterances = fallbackUtterances(tr, label)
	} else {
		res.utterances = fromProsody(utts)
	}
	sortUtterances(res.utterances)
	return res
}

// label resolves display names. The single highest-similarity speaker
// becomes "You" when a reference was supplied and its score clears the
// threshold; ties keep the first-seen speaker. Everyone else gets
// sequential letters in diarization order.
func (p *Pipeline) label(tr *clients.Transcript, results map[string]speakerResult, haveReference bool) *ConversationAnalysis {
	userLabel := ""
	if haveReference {
		best := -1.0
		for _, label := range tr.Speakers {
			r, ok := results[label]
			if !ok {
				continue
			}
			if r.similarity > best {
				best = r.similarity
				userLabel = label
			}
		}
		if best < p.threshold {
			userLabel = ""
		}
	}

	analysis := &ConversationAnalysis{}
	letter := 0
	for _, label := range tr.Speakers {
		r, ok := results[label]
		if !ok {
			continue
		}
		sa := SpeakerAnalysis{Utterances: r.utterances}
		if label == userLabel {
			sa.IsUser = true
			sa.DisplayName = "You"
		} else {
			sa.DisplayName = "Speaker " + letterLabel(letter)
			letter++
		}
		analysis.Speakers = append(analysis.Speakers, sa)
	}
	return analysis
}
