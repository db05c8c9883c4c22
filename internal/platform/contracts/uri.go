package contracts

import (
	"net/url"
	"strings"
)

// CIDFromURI extracts the content id from ipfs://<cid>[/path],
// http(s)://<gateway>/ipfs/<cid>[/path] or a bare cid. Unknown shapes yield "".
func CIDFromURI(uri string) string {
	s := strings.TrimSpace(uri)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "ipfs://"):
		s = s[len("ipfs://"):]
		if strings.HasPrefix(strings.ToLower(s), "ipfs/") {
			s = s[len("ipfs/"):]
		}
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		idx := strings.Index(u.Path, "/ipfs/")
		if idx < 0 {
			return ""
		}
		s = u.Path[idx+len("/ipfs/"):]
	case strings.Contains(s, "://"):
		return ""
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
