package types

// Label keys set by the annotation layer and read back as derived views.
const (
	LabelSeverity = "severity"
	LabelFeature  = "feature"
	LabelStory    = "story"
	LabelEpic     = "epic"
	LabelTags     = "tags"
	LabelOwner    = "owner"
	LabelSuite    = "suite"
	LabelLayer    = "layer"
)

// Labels is the free-form label mapping carried by tests and runs. Values are
// strings except multi-valued keys such as tags, which hold lists. The views
// below derive from the mapping so the serialized form and the views always
// agree.
type Labels map[string]any

// Severity derives the test severity, defaulting to normal.
func (l Labels) Severity() Severity {
	if s, ok := l[LabelSeverity].(string); ok {
		return ParseSeverity(s)
	}
	return SeverityNormal
}

func (l Labels) Feature() string { return l.str(LabelFeature) }
func (l Labels) Story() string   { return l.str(LabelStory) }
func (l Labels) Epic() string    { return l.str(LabelEpic) }
func (l Labels) Owner() string   { return l.str(LabelOwner) }

// Tags returns the tag list. A single string value is treated as one tag;
// list values may arrive as []string or, after a JSON round trip, as []any.
func (l Labels) Tags() []string {
	switch v := l[LabelTags].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// AddTag appends a tag, preserving existing ones. Tags are stored in the
// JSON-native list form so records stay equal across serialization.
func (l Labels) AddTag(tag string) {
	tags := l.Tags()
	vals := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		vals = append(vals, t)
	}
	l[LabelTags] = append(vals, tag)
}

// Clone returns a shallow copy so callers can extend labels without mutating
// the source map.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func (l Labels) str(key string) string {
	s, _ := l[key].(string)
	return s
}
