package priority

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Structural bonuses added after the weighted sum.
const (
	systemBonus          = 0.1
	currentTurnBonus     = 0.2
	incompleteChainBonus = 0.15
)

// severityTable maps error labels to their priority. Unrecognized labels
// score the default below.
var severityTable = map[string]float64{
	"critical":   1.0,
	"exception":  0.9,
	"error":      0.8,
	"permission": 0.8,
	"failure":    0.7,
	"timeout":    0.6,
	"not_found":  0.5,
	"warning":    0.3,
}

const defaultSeverity = 0.4

// codeFileExtensions qualify a query word as a file reference.
var codeFileExtensions = []string{
	".go", ".py", ".js", ".ts", ".java", ".rb", ".rs", ".c", ".cpp", ".h",
}

// Context anchors a scoring pass: the current user query and the clock
// reading shared by every recency computation in the pass.
type Context struct {
	UserQuery string
	Now       time.Time
}

// RelevanceScore measures word overlap between content and the user
// query, with bonuses for literal phrase matches and code references.
func (p *Prioritizer) RelevanceScore(content, userQuery string) float64 {
	if content == "" || userQuery == "" {
		return 0
	}

	contentWords := wordSet(content)
	queryWords := wordSet(userQuery)
	if len(queryWords) == 0 {
		return 0
	}

	matched := 0
	for word := range queryWords {
		if contentWords[word] {
			matched++
		}
	}
	score := float64(matched) / float64(len(queryWords))

	loweredContent := strings.ToLower(content)
	if len(userQuery) > 10 && strings.Contains(loweredContent, strings.ToLower(userQuery)) {
		score += 0.3
	}

	for word := range queryWords {
		if looksLikeCodeReference(word) && strings.Contains(loweredContent, word) {
			score += 0.1
		}
	}

	return clamp01(score)
}

// RecencyScore decays exponentially with age. Age is capped, so the score
// floors at exp(-decay*maxHours) rather than reaching zero.
func (p *Prioritizer) RecencyScore(timestamp, now time.Time) float64 {
	ageHours := now.Sub(timestamp).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	if ageHours > p.config.MaxRecencyHours {
		ageHours = p.config.MaxRecencyHours
	}

	return math.Exp(-p.config.RecencyDecayFactor * ageHours)
}

// ToolActivityScore rewards tool usage and activity density, with a small
// penalty for errors among the tool calls.
func (p *Prioritizer) ToolActivityScore(item Item) float64 {
	score := 0.0

	if item.HasToolActivity() {
		score += 0.4
	}

	score += math.Min(0.3, float64(item.ToolCount)*0.1)

	messageCount := item.MessageCount
	if messageCount < 1 {
		messageCount = 1
	}
	score += math.Min(0.3, float64(item.ToolCount)/float64(messageCount)*0.5)

	score -= math.Min(0.2, float64(item.ErrorCount)*0.05)

	return clamp01(score)
}

// ErrorPriorityScore takes the maximum severity over the item's error
// labels, plus a bump when errors are recent.
func (p *Prioritizer) ErrorPriorityScore(item Item) float64 {
	if len(item.ErrorLabels) == 0 {
		return 0
	}

	score := 0.0
	for _, label := range item.ErrorLabels {
		severity, known := severityTable[label]
		if !known {
			severity = defaultSeverity
		}
		if severity > score {
			score = severity
		}
	}

	if item.HasRecentErrors {
		score += 0.2
	}

	return clamp01(score)
}

// CompositeScore blends the four sub-scores by weight and adds the
// structural bonuses, clamped to [0,1].
func (p *Prioritizer) CompositeScore(item Item, sctx Context) float64 {
	score := p.config.RelevanceWeight*p.RelevanceScore(item.Text(), sctx.UserQuery) +
		p.config.RecencyWeight*p.RecencyScore(item.Timestamp, sctx.Now) +
		p.config.ToolActivityWeight*p.ToolActivityScore(item) +
		p.config.ErrorPriorityWeight*p.ErrorPriorityScore(item)

	if item.IsSystem {
		score += systemBonus
	}
	if item.IsCurrentTurn {
		score += currentTurnBonus
	}
	if item.InIncompleteChain {
		score += incompleteChainBonus
	}

	return clamp01(score)
}

// Prioritize attaches composite scores and returns the items sorted by
// score descending. The sort is stable: ties keep original order.
func (p *Prioritizer) Prioritize(items []Item, sctx Context) []Item {
	scored := make([]Item, len(items))
	copy(scored, items)

	for i := range scored {
		scored[i].Score = p.CompositeScore(scored[i], sctx)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	return scored
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

func looksLikeCodeReference(word string) bool {
	if strings.ContainsAny(word, "._") {
		return true
	}
	for _, ext := range codeFileExtensions {
		if strings.HasSuffix(word, ext) {
			return true
		}
	}
	return strings.HasPrefix(word, "def ") || strings.HasPrefix(word, "class ") ||
		strings.HasPrefix(word, "function")
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
