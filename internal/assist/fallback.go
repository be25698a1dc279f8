package assist

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/resume-builder/internal/prompts"
	"github.com/jonathan/resume-builder/internal/types"
)

// Tone buckets of the offline generator
const (
	ToneProfessional = "professional"
	ToneEnergetic    = "energetic"
	ToneExecutive    = "executive"
)

const (
	achievementsKey = "achievements"
	defaultField    = "Technology"
	defaultSkills   = "strategic planning and execution"
	defaultYears    = "10"
	maxSkills       = 3
)

// Tones returns the supported tone buckets.
func Tones() []string {
	return []string{ToneProfessional, ToneEnergetic, ToneExecutive}
}

// NormalizeTone maps a requested tone onto a bucket; unknown tones use professional.
func NormalizeTone(tone string) string {
	tone = strings.ToLower(strings.TrimSpace(tone))
	switch tone {
	case ToneProfessional, ToneEnergetic, ToneExecutive:
		return tone
	}
	return ToneProfessional
}

// Fallback generates offline text from fixed phrase templates. Its output
// depends only on its inputs and the random draws.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback creates a generator drawing from src. A nil src seeds from the clock.
func NewFallback(src rand.Source) *Fallback {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>32)
	}
	return &Fallback{rng: rand.New(src)}
}

func (f *Fallback) intN(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.IntN(n)
}

// Generate returns a phrase for tone with [Title], [Field], [Skills] and
// [Number] filled in, followed by the keywords or a random achievement.
func (f *Fallback) Generate(tone, keywords string, doc *types.ResumeDocument) string {
	phrases := prompts.MustGetList(prompts.FallbackFile, NormalizeTone(tone))
	text := phrases[f.intN(len(phrases))]

	title := DefaultJobTitle
	skills := defaultSkills
	if doc != nil {
		title = JobTitle(doc.Title)
		if s := topSkills(doc.Skills); s != "" {
			skills = s
		}
	}

	text = strings.NewReplacer(
		"[Title]", title,
		"[Field]", defaultField,
		"[Skills]", skills,
		"[Number]", defaultYears,
	).Replace(text)

	if keywords = strings.TrimSpace(keywords); keywords != "" {
		return text + " Key highlights include: " + keywords + "."
	}

	achievements := prompts.MustGetList(prompts.FallbackFile, achievementsKey)
	achievement := achievements[f.intN(len(achievements))]
	return text + " Also, " + strings.ToLower(achievement)
}

// topSkills joins the first few non-blank skills of the document.
func topSkills(skills []string) string {
	picked := make([]string, 0, maxSkills)
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			picked = append(picked, s)
		}
		if len(picked) == maxSkills {
			break
		}
	}
	return strings.Join(picked, ", ")
}
