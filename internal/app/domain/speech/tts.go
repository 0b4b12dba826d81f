// Package speech prepares replies for synthesis: speech polishing,
// sentence-safe chunking, pacing and the barge-in controller.
package speech

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
)

// MaxChunkLen is the hard cap for one synthesized chunk.
const MaxChunkLen = 120

// Pacing tunes how chunks are spoken and spaced.
type Pacing struct {
	Rate               float64
	Pitch              float64
	PauseBetweenChunks time.Duration
	PauseJitter        time.Duration
}

// DefaultPacing is the voice profile used for all replies.
func DefaultPacing() Pacing {
	return Pacing{
		Rate:               0.95,
		Pitch:              -0.5,
		PauseBetweenChunks: 300 * time.Millisecond,
		PauseJitter:        100 * time.Millisecond,
	}
}

// Processed is the synthesis plan for one reply.
type Processed struct {
	Chunks []string
	Pacing Pacing
}

var (
	leadingEnum  = regexp.MustCompile(`^(\d+)\.\s+`)
	inlineEnum   = regexp.MustCompile(`\s(\d+)\.\s+`)
	markdownMark = regexp.MustCompile(`\*\*|\*|_`)
	dashes       = strings.NewReplacer("–", ",", "—", ",")
	spacedComma  = regexp.MustCompile(`\s+,`)
	dupCommas    = regexp.MustCompile(`,(\s*,)+`)
	sentenceEnd  = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// PolishForSpeech rewrites list markers into spoken ordinals and strips
// formatting a voice cannot read. Applying it twice changes nothing.
func PolishForSpeech(text string) string {
	out := strings.TrimSpace(text)

	out = leadingEnum.ReplaceAllStringFunc(out, func(m string) string {
		n, _ := strconv.Atoi(leadingEnum.FindStringSubmatch(m)[1])
		return lexicon.SpokenOrdinal(n) + " "
	})
	out = inlineEnum.ReplaceAllStringFunc(out, func(m string) string {
		n, _ := strconv.Atoi(inlineEnum.FindStringSubmatch(m)[1])
		return " " + lexicon.SpokenOrdinal(n) + " "
	})

	out = markdownMark.ReplaceAllString(out, "")
	out = dashes.Replace(out)
	out = strings.Join(strings.Fields(out), " ")
	out = spacedComma.ReplaceAllString(out, ",")
	out = dupCommas.ReplaceAllString(out, ",")
	return out
}

// SplitIntoChunks packs whole sentences into chunks no longer than max.
// A single sentence longer than max stays intact; chunking never cuts
// inside a sentence.
func SplitIntoChunks(text string, max int) []string {
	if max <= 0 {
		max = MaxChunkLen
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := sentenceEnd.FindAllString(text, -1)
	if tail := strings.TrimSpace(sentenceEnd.ReplaceAllString(text, "")); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) == 0 {
		return []string{text}
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		runes := utf8.RuneCountInString(s)
		if currentLen == 0 {
			current = append(current, s)
			currentLen = runes
			continue
		}
		if currentLen+1+runes <= max {
			current = append(current, s)
			currentLen += 1 + runes
			continue
		}
		chunks = append(chunks, strings.Join(current, " "))
		current = current[:0]
		current = append(current, s)
		currentLen = runes
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// ProcessForTTS polishes and chunks a reply, pairing it with pacing.
func ProcessForTTS(text string) Processed {
	polished := PolishForSpeech(text)
	return Processed{
		Chunks: SplitIntoChunks(polished, MaxChunkLen),
		Pacing: DefaultPacing(),
	}
}

// TTSText picks what gets synthesized. When the reply carries a list that
// the UI renders itself, only the lead-in is spoken so the voice does not
// read the list twice. The lead-in ends at the colon introducing the list
// or, without one, at the first sentence boundary.
func TTSText(reply string, hasList bool) string {
	if !hasList {
		return reply
	}
	cut := reply
	if i := strings.IndexByte(cut, ':'); i > 0 {
		cut = strings.TrimSpace(cut[:i]) + "."
	}
	if m := sentenceEnd.FindString(cut); m != "" {
		return strings.TrimSpace(m)
	}
	return cut
}
