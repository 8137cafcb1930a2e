package ratelimit

import (
	"net/http"
	"strings"
)

var unlimited = map[string]bool{"/health": true, "/metrics": true}

// Match returns the rule for a request, or nil when the default limit applies.
// Probes get a zero-limit rule. Exact and wildcard rules win over prefixes.
func Match(path, method string, rules []Rule) *Rule {
	if method == http.MethodGet && unlimited[path] {
		return &Rule{Path: path, Method: method}
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}

	for i := range rules {
		if rules[i].Method == method && matchSegments(rules[i].Path, path) {
			return &rules[i]
		}
	}
	for i := range rules {
		prefix := rules[i].Path
		if rules[i].Method == method && strings.HasSuffix(prefix, "/") && strings.HasPrefix(path+"/", prefix) {
			return &rules[i]
		}
	}
	return nil
}

func matchSegments(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	want := strings.Split(pattern, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}
