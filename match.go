package scopecache

import "strings"

// MatchPattern reports whether s matches pattern. The pattern is a
// literal string where '*' matches any run of characters (including
// none), anchored at both ends. This is deliberately not a regular
// expression: both backends must agree byte-for-byte on what a pattern
// selects, and the redis MATCH glob and this matcher only share '*'.
func MatchPattern(pattern, s string) bool {
	segs := strings.Split(pattern, "*")
	if len(segs) == 1 {
		return s == pattern
	}

	// anchored head
	if !strings.HasPrefix(s, segs[0]) {
		return false
	}
	s = s[len(segs[0]):]

	// anchored tail
	last := segs[len(segs)-1]
	if !strings.HasSuffix(s, last) {
		return false
	}
	s = s[:len(s)-len(last)]

	// middle segments in order
	for _, seg := range segs[1 : len(segs)-1] {
		if seg == "" {
			continue
		}
		i := strings.Index(s, seg)
		if i < 0 {
			return false
		}
		s = s[i+len(seg):]
	}
	return true
}

// EscapeGlob escapes redis MATCH glob metacharacters except '*', so a
// pattern built from literal key material selects the same keys remotely
// as MatchPattern does locally.
func EscapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '?', '[', ']', '^', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
