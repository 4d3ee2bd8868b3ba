package auth

import "strings"

// Resolve finds the best-matching credential for a request to host/requestPath.
// Matching prefers, in order: an exact host match over a wildcard host match,
// and within a host match, the longest stored path prefix that is itself a
// prefix of requestPath (an empty stored prefix matches every path). A
// wildcard stored host "*.example.com" matches "foo.example.com" and
// "foo.bar.example.com" but never "example.com" itself.
func Resolve(entries []Entry, host, requestPath string) (cred Credential, ok bool) {
	var bestWildcard bool = true // higher value is worse; start worse than any real match
	var bestPrefixLen = -1

	for _, e := range entries {
		if !hostMatches(e.Host, host) {
			continue
		}
		if e.PathPrefix != "" && !strings.HasPrefix(requestPath, e.PathPrefix) {
			continue
		}
		wildcard := isWildcardHost(e.Host)
		prefixLen := len(e.PathPrefix)

		if !ok {
			cred, ok, bestWildcard, bestPrefixLen = e.Credential, true, wildcard, prefixLen
			continue
		}
		// Prefer exact host over wildcard host; within the same host
		// specificity, prefer the longer path prefix.
		if bestWildcard && !wildcard {
			cred, bestWildcard, bestPrefixLen = e.Credential, wildcard, prefixLen
			continue
		}
		if wildcard == bestWildcard && prefixLen > bestPrefixLen {
			cred, bestPrefixLen = e.Credential, prefixLen
		}
	}
	return cred, ok
}

func isWildcardHost(storedHost string) bool {
	return strings.HasPrefix(storedHost, "*.")
}

// hostMatches reports whether storedHost (possibly "*.example.com") matches
// requestHost.
func hostMatches(storedHost, requestHost string) bool {
	if !isWildcardHost(storedHost) {
		return strings.EqualFold(storedHost, requestHost)
	}
	suffix := storedHost[1:] // ".example.com"
	if !strings.HasSuffix(strings.ToLower(requestHost), strings.ToLower(suffix)) {
		return false
	}
	// Require at least one label before the suffix: "example.com" must not match.
	return len(requestHost) > len(suffix)
}
