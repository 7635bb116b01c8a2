package api

import "net/http"

// anonymousUserID is used when a caller sends no identifying header.
const anonymousUserID = "anonymous"

// resolveUserID reads the caller's identity from a header set by upstream
// auth middleware. Session issuance and credential verification are out
// of scope for this core; this resolver exists only so local requests
// have a stable per-caller user id to key the ledger, risk gate, and
// order history by.
func resolveUserID(r *http.Request) string {
	if id := r.Header.Get("X-User-Id"); id != "" {
		return id
	}
	return anonymousUserID
}
