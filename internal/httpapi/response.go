// Package httpapi is the thin HTTP adapter over internal/auction.Manager:
// it decodes requests, enqueues the matching coordinator command, and
// encodes the result as the {ok, data, error} envelope from spec §6. No
// routing/auth middleware lives here — that collaborator is explicitly out
// of scope (§1); this package trusts a pre-authenticated actor identity
// attached to the request by whatever sits in front of it.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/abhinavece/auctionhub/internal/autxerr"
)

// envelope is the wire shape every handler in this package replies with.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  any             `json:"data,omitempty"`
	Error *errorEnvelope  `json:"error,omitempty"`
}

type errorEnvelope struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{OK: true, Data: data})
}

// writeError maps err's autxerr.Kind to the HTTP status per spec §7 and
// writes the {ok:false, error} envelope. A nil or unclassified error maps
// to 500, matching autxerr.KindOf's own fail-closed default.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := autxerr.KindOf(err)
	status := statusForKind(kind)
	if status >= 500 {
		logger.Error("request failed", slog.String("kind", string(kind)), slog.Any("error", err))
	}
	writeJSON(w, status, envelope{
		OK: false,
		Error: &errorEnvelope{
			Kind:   string(kind),
			Reason: autxerr.ReasonOf(err),
		},
	})
}

func statusForKind(k autxerr.Kind) int {
	switch k {
	case autxerr.KindValidation:
		return http.StatusBadRequest
	case autxerr.KindAuthorization:
		return http.StatusUnauthorized
	case autxerr.KindNotFound:
		return http.StatusNotFound
	case autxerr.KindStateConflict, autxerr.KindResourceExhausted:
		return http.StatusConflict
	case autxerr.KindTransient, autxerr.KindInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return autxerr.Wrap(autxerr.KindValidation, "malformed_request_body", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for handlers whose body is optional (e.g.
// a reject reason): an empty body leaves v at its zero value instead of
// failing validation.
func decodeOptionalJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return autxerr.Wrap(autxerr.KindValidation, "malformed_request_body", err)
	}
	return nil
}
