package auth

import (
	"net/http"
	"strings"
)

// Policy maps requests to the permission they need.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredPermission resolves the permission a request needs. Unknown
// non-API paths need none.
func (p Policy) RequiredPermission(r *http.Request) (Permission, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/cost-standards/export.xlsx", path == "/api/v1/cost-standards/export.pdf":
		return PermExportStandards, true
	case path == "/api/v1/cost-standards" || strings.HasPrefix(path, "/api/v1/cost-standards/"):
		if isReadMethod(method) {
			return PermReadStandards, true
		}
		return PermWriteStandards, true
	case path == "/api/v1/forecasts/staffing":
		return PermRunForecast, true
	}

	if strings.HasPrefix(path, "/api/") {
		if isReadMethod(method) {
			return PermReadStandards, true
		}
		return PermAdminAPI, true
	}
	return "", false
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
