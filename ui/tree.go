// Package ui provides box-drawing primitives for terminal output: tree
// prefixes for rendering nested step hierarchies and framed panels for
// summaries.
package ui

import (
	"strings"
	"unicode/utf8"
)

const (
	TreeBranch     = "├── " // node with siblings below it
	TreeLastBranch = "└── " // last node among its siblings
	TreeVertical   = "│"
	TreeContinue   = "│   " // ancestor still has siblings below
	TreeIndent     = "    " // ancestor was the last of its siblings

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// BuildTreePrefix renders the indentation for a node at the given depth.
// parentIsLast records, outermost ancestor first, whether each ancestor was
// the last among its siblings; ancestors that were last need no continuation
// line below them.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}
	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}

// BuildBoxHeader renders the top of a framed panel with an embedded title.
// The box grows to fit a title wider than the requested width.
func BuildBoxHeader(title string, width int) string {
	if min := utf8.RuneCountInString(title) + 4; width < min {
		width = min
	}

	padding := width - 4 - utf8.RuneCountInString(title)

	header := BoxTopLeft + repeatString(BoxHorizontal, width-2) + BoxTopRight + "\n"
	header += BoxVertical + " " + title + repeatString(" ", padding+1) + BoxVertical + "\n"
	header += BoxTeeRight + repeatString(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
	return header
}

// BuildBoxFooter renders the bottom border of a framed panel.
func BuildBoxFooter(width int) string {
	return BoxBottomLeft + repeatString(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}

// BuildBoxLine renders one content line inside a framed panel, truncating
// content that would overflow the frame.
func BuildBoxLine(content string, width int) string {
	contentLen := utf8.RuneCountInString(content)
	maxContentLen := width - 4

	if contentLen > maxContentLen {
		runes := []rune(content)
		content = string(runes[:maxContentLen-3]) + "..."
		contentLen = maxContentLen
	}

	padding := maxContentLen - contentLen
	return BoxVertical + " " + content + repeatString(" ", padding+1) + BoxVertical + "\n"
}

func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
