// Package conflict classifies conflicted files and resolves them through a
// strategy selection and fallback chain.
package conflict

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Category is the kind of conflicted artifact.
type Category string

const (
	CategoryLockfile      Category = "LOCKFILE"
	CategoryLarge         Category = "LARGE"
	CategoryMultiple      Category = "MULTIPLE"
	CategoryDocumentation Category = "DOCUMENTATION"
	CategoryCode          Category = "CODE"
	CategoryConfig        Category = "CONFIG"
	CategoryUnknown       Category = "UNKNOWN"
)

// Complexity is a coarse estimate of how hard a conflict is to resolve.
type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

// Strategy is a way to resolve one conflicted artifact.
type Strategy string

const (
	StrategyAuto       Strategy = "auto"
	StrategyAI         Strategy = "AI"
	StrategyTheirs     Strategy = "THEIRS"
	StrategyOurs       Strategy = "OURS"
	StrategyRegenerate Strategy = "REGENERATE"
	StrategyManual     Strategy = "MANUAL"
)

// ParseStrategy maps user input such as "theirs" or "auto" to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, true
	case "ai":
		return StrategyAI, true
	case "theirs":
		return StrategyTheirs, true
	case "ours":
		return StrategyOurs, true
	case "regenerate":
		return StrategyRegenerate, true
	case "manual":
		return StrategyManual, true
	}
	return "", false
}

const (
	// LargeFileBytes is the size above which a file is too big to send to a model.
	LargeFileBytes = 100_000
	// MaxAutoSections is the number of conflict sections above which a file
	// needs a human.
	MaxAutoSections = 10
)

// Profile is the classification of one conflicted artifact.
type Profile struct {
	Path                string     `json:"path"`
	SizeBytes           int        `json:"size_bytes"`
	MarkerCount         int        `json:"marker_count"`
	Category            Category   `json:"category"`
	Complexity          Complexity `json:"complexity"`
	RecommendedStrategy Strategy   `json:"recommended_strategy"`
	Rationale           string     `json:"rationale"`
}

var lockfiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
	"cargo.lock":        true,
	"poetry.lock":       true,
	"gemfile.lock":      true,
	"composer.lock":     true,
}

var docExts = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".txt": true, ".adoc": true,
}

var codeExts = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".java": true, ".rs": true, ".rb": true, ".c": true, ".h": true, ".cpp": true,
	".cs": true, ".kt": true, ".swift": true, ".php": true,
}

var configExts = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".env": true, ".xml": true,
}

// IsLockfile reports whether path names a dependency lockfile.
func IsLockfile(path string) bool {
	return lockfiles[strings.ToLower(filepath.Base(path))]
}

// Classify applies the decision table to a conflicted artifact. Rules are
// evaluated in priority order and the first match wins.
func Classify(path string, sizeBytes, markerCount int) Profile {
	p := Profile{Path: path, SizeBytes: sizeBytes, MarkerCount: markerCount}
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case IsLockfile(path):
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryLockfile, StrategyRegenerate, ComplexityLow
		p.Rationale = "lock files should be regenerated, not merged"
	case sizeBytes > LargeFileBytes:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryLarge, StrategyTheirs, ComplexityHigh
		p.Rationale = "file too large for reliable AI processing"
	case markerCount > MaxAutoSections:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryMultiple, StrategyManual, ComplexityHigh
		p.Rationale = "too many conflict sections for automatic resolution"
	case docExts[ext]:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryDocumentation, StrategyAI, ComplexityLow
		p.Rationale = "documentation conflicts are AI-resolvable"
	case codeExts[ext]:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryCode, StrategyAI, ComplexityMedium
		p.Rationale = "code conflicts benefit from AI analysis"
	case configExts[ext]:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryConfig, StrategyAI, ComplexityLow
		p.Rationale = "config conflicts are typically simple"
	default:
		p.Category, p.RecommendedStrategy, p.Complexity = CategoryUnknown, StrategyAI, ComplexityMedium
		p.Rationale = "unrecognized file type, defaulting to AI resolution"
	}
	return p
}

// ProfileContent classifies path using its raw conflicted content.
func ProfileContent(path, content string) Profile {
	return Classify(path, len(content), CountMarkers(content))
}

var (
	openMarker = regexp.MustCompile(`(?m)^<{7}(?:\s|$)`)
	anyMarker  = regexp.MustCompile(`(?m)^(?:<{7}(?:\s|$)|={7}\r?$|>{7}(?:\s|$))`)
)

// CountMarkers returns the number of conflict sections in content, counted by
// their opening markers.
func CountMarkers(content string) int {
	return len(openMarker.FindAllStringIndex(content, -1))
}

// HasMarkers reports whether content still contains any conflict marker line.
func HasMarkers(content string) bool {
	return anyMarker.MatchString(content)
}
