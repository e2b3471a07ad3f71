package httpapi

import "net/http"

// actorHeader names the pre-authenticated caller for event attribution
// (ActionEvent.PerformedBy). Real authentication — verifying who is allowed
// to claim this identity — is the job of the routing/auth middleware this
// package sits behind (§1 out of scope); this adapter only reads what that
// layer already decided and trusts it.
const actorHeader = "X-Auctionhub-Actor"

// actorFrom returns the pre-authenticated actor identity for r, defaulting
// to "admin" for requests the upstream layer didn't tag (e.g. during local
// development without the auth middleware wired in front of this router).
func actorFrom(r *http.Request) string {
	if v := r.Header.Get(actorHeader); v != "" {
		return v
	}
	return "admin"
}
