package gitignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Match_SimplePatterns(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		isDir    bool
		expected bool
	}{
		{name: "exact filename match", pattern: "foo.txt", path: "foo.txt", isDir: false, expected: true},
		{name: "exact filename no match", pattern: "foo.txt", path: "bar.txt", isDir: false, expected: false},
		{name: "filename in subdir", pattern: "foo.txt", path: "src/foo.txt", isDir: false, expected: true},
		{name: "filename deep nested", pattern: "foo.txt", path: "a/b/c/foo.txt", isDir: false, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.expected, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_Match_WildcardPatterns(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		isDir    bool
		expected bool
	}{
		{name: "*.log matches .log", pattern: "*.log", path: "error.log", isDir: false, expected: true},
		{name: "*.log matches deep .log", pattern: "*.log", path: "logs/error.log", isDir: false, expected: true},
		{name: "*.log no match .txt", pattern: "*.log", path: "error.txt", isDir: false, expected: false},
		{name: "test* matches testfile", pattern: "test*", path: "testfile.go", isDir: false, expected: true},
		{name: "test* no match production", pattern: "test*", path: "production.go", isDir: false, expected: false},
		{name: "file?.txt matches file1.txt", pattern: "file?.txt", path: "file1.txt", isDir: false, expected: true},
		{name: "file?.txt no match file12.txt", pattern: "file?.txt", path: "file12.txt", isDir: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.expected, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_Match_DoubleStarPatterns(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		path     string
		isDir    bool
		expected bool
	}{
		{name: "**/node_modules/** matches nested file", pattern: "**/node_modules/**", path: "a/node_modules/pkg/index.js", isDir: false, expected: true},
		{name: "**/node_modules/** no match sibling dir", pattern: "**/node_modules/**", path: "a/not_node_modules/index.js", isDir: false, expected: false},
		{name: "**/*.min.js matches anywhere", pattern: "**/*.min.js", path: "dist/vendor/app.min.js", isDir: false, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.expected, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_Match_DirOnlyPatterns(t *testing.T) {
	m := New()
	m.AddPattern("temp/")

	assert.True(t, m.Match("temp", true), "directory itself should match")
	assert.True(t, m.Match("temp/file.go", false), "file inside matched dir should match")
	assert.False(t, m.Match("temp", false), "a file named temp should not match a dir-only pattern")
}

func TestMatcher_Match_AnchoredPatterns(t *testing.T) {
	m := New()
	m.AddPattern("/build")

	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("src/build", true), "anchored pattern should not match nested path")
}

func TestMatcher_Match_Negation(t *testing.T) {
	m := New()
	m.AddPatterns([]string{"*.log", "!important.log"})

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("important.log", false), "negated pattern should un-ignore a previously matched path")
}

func TestMatcher_Match_CommentsAndBlankLinesIgnored(t *testing.T) {
	m := New()
	m.AddPatterns([]string{"# a comment", "", "*.tmp"})

	assert.True(t, m.Match("scratch.tmp", false))
	assert.False(t, m.Match("# a comment", false))
}
