package types

// Link kinds understood by the reporting surface.
const (
	LinkTypeLink     = "link"
	LinkTypeIssue    = "issue"
	LinkTypeTestCase = "test_case"
)

// Link associates a test with an external resource such as an issue or a
// test-case management entry.
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewLink creates a plain link. An empty name defaults to the URL.
func NewLink(url, name string) Link {
	return newLink(url, name, LinkTypeLink)
}

// IssueLink creates a link to a tracked issue.
func IssueLink(url, name string) Link {
	return newLink(url, name, LinkTypeIssue)
}

// TestCaseLink creates a link to a test-case definition.
func TestCaseLink(url, name string) Link {
	return newLink(url, name, LinkTypeTestCase)
}

func newLink(url, name, linkType string) Link {
	if name == "" {
		name = url
	}
	return Link{URL: url, Name: name, Type: linkType}
}
