package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"agency-admin/internal/auth"
)

// FromRequest builds an entry for action on a resource, taking the actor,
// role, client address and user agent from r. tenantID is passed in because
// anonymous requests act on the service's configured tenant.
func FromRequest(r *http.Request, tenantID, action, resourceType, resourceID string, metadata any) (Entry, error) {
	entry := Entry{
		TenantID:     tenantID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if metadata != nil {
		payload, err := json.Marshal(metadata)
		if err != nil {
			return entry, err
		}
		entry.Metadata = payload
	}
	if r == nil {
		return entry, nil
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		entry.Actor = id.Subject
		entry.Role = string(id.Role)
	}
	entry.IP = clientIP(r)
	entry.UserAgent = r.UserAgent()
	return entry, nil
}

// clientIP prefers the first valid X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
