// Package security implements the adaptive threat-detection and
// automated-blocking engine: request classification, severity derivation,
// enforcement policy and brute-force tracking. All shared state lives in the
// storage backend; evaluation runs inline in the calling request.
package security

import "sort"

// Tag is a symbolic label attached to a request after analysis. The
// vocabulary is fixed; tags are produced fresh per request and never
// persisted.
type Tag string

const (
	TagRapidRequests       Tag = "rapid_requests"
	TagSuspiciousUserAgent Tag = "suspicious_user_agent"
	TagPathTraversal       Tag = "path_traversal"
	TagSQLInjection        Tag = "sql_injection"
	TagLargeRequest        Tag = "large_request"
)

// TagSet is a set of threat tags accumulated for a single request.
type TagSet map[Tag]struct{}

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts a tag into the set.
func (s TagSet) Add(t Tag) { s[t] = struct{}{} }

// Has reports set membership.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Strings returns the tags sorted, for stable log output.
func (s TagSet) Strings() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// tagPriority orders tags by how decisively they drive enforcement, most
// severe first.
var tagPriority = []Tag{
	TagSQLInjection,
	TagPathTraversal,
	TagRapidRequests,
	TagSuspiciousUserAgent,
	TagLargeRequest,
}

// Dominant returns the most severe tag present, used as the threat type
// when a request carries several signals. Empty string for the empty set.
func (s TagSet) Dominant() Tag {
	for _, t := range tagPriority {
		if s.Has(t) {
			return t
		}
	}
	return ""
}

// Severity classifies a tag set into the three-level ordinal driving the
// enforcement response. The zero value means "not yet derived" so event
// contexts can distinguish an explicitly supplied severity.
type Severity int

const (
	SeverityUnspecified Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unspecified"
	}
}

// DetermineSeverity derives the severity for a tag set. Pure and
// order-independent: injection or traversal is always critical; rapid
// requests escalate to high only combined with at least one other signal;
// everything else, including the empty set, is medium.
func DetermineSeverity(tags TagSet) Severity {
	if tags.Has(TagSQLInjection) || tags.Has(TagPathTraversal) {
		return SeverityCritical
	}
	if tags.Has(TagRapidRequests) && len(tags) > 1 {
		return SeverityHigh
	}
	return SeverityMedium
}
