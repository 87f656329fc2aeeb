package conflict

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_DecisionTable(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		size       int
		markers    int
		category   Category
		strategy   Strategy
		complexity Complexity
	}{
		{"lockfile", "package-lock.json", 10, 1, CategoryLockfile, StrategyRegenerate, ComplexityLow},
		{"nested lockfile", "web/yarn.lock", 10, 1, CategoryLockfile, StrategyRegenerate, ComplexityLow},
		{"large", "src/app.ts", 150_000, 2, CategoryLarge, StrategyTheirs, ComplexityHigh},
		{"many markers", "src/app.ts", 5_000, 11, CategoryMultiple, StrategyManual, ComplexityHigh},
		{"ten markers is fine", "src/app.ts", 5_000, 10, CategoryCode, StrategyAI, ComplexityMedium},
		{"docs", "README.md", 800, 1, CategoryDocumentation, StrategyAI, ComplexityLow},
		{"code", "internal/server.go", 800, 1, CategoryCode, StrategyAI, ComplexityMedium},
		{"config", "deploy/values.yaml", 800, 1, CategoryConfig, StrategyAI, ComplexityLow},
		{"json config", "tsconfig.json", 800, 1, CategoryConfig, StrategyAI, ComplexityLow},
		{"unknown", "Makefile", 800, 1, CategoryUnknown, StrategyAI, ComplexityMedium},
		{"upper case ext", "NOTES.MD", 800, 1, CategoryDocumentation, StrategyAI, ComplexityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(tt.path, tt.size, tt.markers)
			assert.Equal(t, tt.category, p.Category)
			assert.Equal(t, tt.strategy, p.RecommendedStrategy)
			assert.Equal(t, tt.complexity, p.Complexity)
			assert.Equal(t, tt.path, p.Path)
			assert.NotEmpty(t, p.Rationale)
		})
	}
}

func TestClassify_LockfileAlwaysRegenerates(t *testing.T) {
	for _, size := range []int{0, 100_001, 5_000_000} {
		for _, markers := range []int{0, 11, 500} {
			p := Classify("package-lock.json", size, markers)
			assert.Equal(t, StrategyRegenerate, p.RecommendedStrategy)
		}
	}
}

func TestClassify_LargeDocumentation(t *testing.T) {
	p := Classify("docs/guide.md", 150_000, 1)
	assert.Equal(t, StrategyTheirs, p.RecommendedStrategy)
	assert.Equal(t, ComplexityHigh, p.Complexity)
}

func TestCountMarkers(t *testing.T) {
	content := "a\n<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> main\nb\n<<<<<<< HEAD\nz\n=======\nw\n>>>>>>> main\n"
	assert.Equal(t, 2, CountMarkers(content))
	assert.Equal(t, 0, CountMarkers("no conflicts here\n"))
	// Markers must start the line.
	assert.Equal(t, 0, CountMarkers("text <<<<<<< HEAD\n"))
}

func TestHasMarkers(t *testing.T) {
	assert.True(t, HasMarkers("<<<<<<< HEAD\n"))
	assert.True(t, HasMarkers("a\n=======\nb"))
	assert.True(t, HasMarkers("a\n>>>>>>> feature/x\n"))
	assert.True(t, HasMarkers("a\r\n=======\r\nb"))
	assert.False(t, HasMarkers("a == b\n"))
	assert.False(t, HasMarkers("======== heading underline\n"))
}

func TestProfileContent(t *testing.T) {
	content := "<<<<<<< HEAD\n" + strings.Repeat("x", 10) + "\n=======\ny\n>>>>>>> main\n"
	p := ProfileContent("main.go", content)
	assert.Equal(t, 1, p.MarkerCount)
	assert.Equal(t, len(content), p.SizeBytes)
	assert.Equal(t, CategoryCode, p.Category)
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("Theirs")
	assert.True(t, ok)
	assert.Equal(t, StrategyTheirs, s)

	s, ok = ParseStrategy("")
	assert.True(t, ok)
	assert.Equal(t, StrategyAuto, s)

	_, ok = ParseStrategy("yolo")
	assert.False(t, ok)
}
