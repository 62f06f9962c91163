package ui

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildTreePrefix(t *testing.T) {
	tests := []struct {
		name         string
		depth        int
		isLast       bool
		parentIsLast []bool
		expected     string
	}{
		{
			name:     "root level has no prefix",
			depth:    0,
			expected: "",
		},
		{
			name:     "depth 1, not last",
			depth:    1,
			expected: "├── ",
		},
		{
			name:     "depth 1, is last",
			depth:    1,
			isLast:   true,
			expected: "└── ",
		},
		{
			name:         "depth 2, parent not last, not last",
			depth:        2,
			parentIsLast: []bool{false},
			expected:     "│   ├── ",
		},
		{
			name:         "depth 2, parent was last, is last",
			depth:        2,
			isLast:       true,
			parentIsLast: []bool{true},
			expected:     "    └── ",
		},
		{
			name:         "depth 3, mixed ancestry",
			depth:        3,
			parentIsLast: []bool{false, true},
			expected:     "│       ├── ",
		},
		{
			name:         "depth 4, all ancestors have siblings",
			depth:        4,
			isLast:       true,
			parentIsLast: []bool{false, false, false},
			expected:     "│   │   │   └── ",
		},
		{
			name:     "missing ancestry defaults to continuation lines",
			depth:    3,
			expected: "│   │   ├── ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildTreePrefix(tt.depth, tt.isLast, tt.parentIsLast)
			if result != tt.expected {
				t.Errorf("BuildTreePrefix(%d, %v, %v) = %q, want %q",
					tt.depth, tt.isLast, tt.parentIsLast, result, tt.expected)
			}
		})
	}
}

func TestBuildBoxHeader(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		width    int
		expected string
	}{
		{
			name:     "simple header",
			title:    "TEST",
			width:    10,
			expected: "┌────────┐\n│ TEST   │\n├────────┤\n",
		},
		{
			name:     "width grows to fit the title",
			title:    "LONG TITLE",
			width:    5,
			expected: "┌────────────┐\n│ LONG TITLE │\n├────────────┤\n",
		},
		{
			name:     "exact fit",
			title:    "FIT",
			width:    7,
			expected: "┌─────┐\n│ FIT │\n├─────┤\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildBoxHeader(tt.title, tt.width)
			if result != tt.expected {
				t.Errorf("BuildBoxHeader(%q, %d) =\n%q\nwant:\n%q",
					tt.title, tt.width, result, tt.expected)
			}
		})
	}
}

func TestBuildBoxFooter(t *testing.T) {
	tests := []struct {
		width    int
		expected string
	}{
		{width: 10, expected: "└────────┘\n"},
		{width: 5, expected: "└───┘\n"},
		{width: 3, expected: "└─┘\n"},
	}

	for _, tt := range tests {
		result := BuildBoxFooter(tt.width)
		if result != tt.expected {
			t.Errorf("BuildBoxFooter(%d) = %q, want %q", tt.width, result, tt.expected)
		}
	}
}

func TestBuildBoxLine(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		width    int
		expected string
	}{
		{
			name:     "short content",
			content:  "TEST",
			width:    10,
			expected: "│ TEST   │\n",
		},
		{
			name:     "exact fit content",
			content:  "EXACT",
			width:    9,
			expected: "│ EXACT │\n",
		},
		{
			name:     "long content gets truncated",
			content:  "VERY LONG CONTENT THAT EXCEEDS WIDTH",
			width:    15,
			expected: "│ VERY LON... │\n",
		},
		{
			name:     "empty content",
			content:  "",
			width:    8,
			expected: "│      │\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildBoxLine(tt.content, tt.width)
			if result != tt.expected {
				t.Errorf("BuildBoxLine(%q, %d) = %q, want %q",
					tt.content, tt.width, result, tt.expected)
			}
		})
	}
}

func TestCompleteBox(t *testing.T) {
	width := 20
	box := BuildBoxHeader("TEST RESULTS", width)
	box += BuildBoxLine("Status: PASS", width)
	box += BuildBoxLine("Duration: 1.5s", width)
	box += BuildBoxFooter(width)

	lines := strings.Split(strings.TrimRight(box, "\n"), "\n")

	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	for i, line := range lines {
		if got := utf8.RuneCountInString(line); got != width {
			t.Errorf("line %d has width %d, expected %d: %q", i, got, width, line)
		}
	}
	if !strings.HasPrefix(lines[0], "┌") || !strings.HasSuffix(lines[0], "┐") {
		t.Errorf("first line should be the top border: %q", lines[0])
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "└") || !strings.HasSuffix(last, "┘") {
		t.Errorf("last line should be the bottom border: %q", last)
	}
}
