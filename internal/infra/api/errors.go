package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"code-translator/internal/domain"
)

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindSignatureNotFound, domain.KindUnsupportedConstruct, domain.KindUnsupportedLanguage,
		domain.KindTranslationFailed, domain.KindInvalidTestInput, domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindJobNotFound:
		return http.StatusNotFound
	case domain.KindVerificationAborted:
		return http.StatusUnprocessableEntity
	case domain.KindBackendUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its status and wire kind. Internal errors are not
// echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large", Kind: domain.KindInvalidArgument})
			return
		}
	}
	writeJSON(w, statusOf(kind), errorBody{Error: msg, Kind: kind})
}
