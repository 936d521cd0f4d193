package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidAmount, domain.KindInvalidRequest, domain.KindInsufficientFunds, domain.KindInvalidStateTransition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindDuplicateOperation:
		return http.StatusConflict
	case domain.KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the error body. Internal errors are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorStatus(w, r, err, statusForKind(domain.KindOf(err)))
}

// writeNotFoundAsBadRequest renders NotFound as 400, for endpoints where the
// missing thing is a value in the request body rather than the resource.
func writeNotFoundAsBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)
	if kind == domain.KindNotFound {
		status = http.StatusBadRequest
	}
	writeErrorStatus(w, r, err, status)
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	}

	writeJSON(w, status, dto.ErrorResponse{Error: string(kind), Message: message})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// identity returns the authenticated caller. The router only mounts handlers
// behind authentication, so a missing identity is an unauthorized request.
func identity(r *http.Request) (*domain.Identity, error) {
	id, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return id, nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseTimeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, val); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", domain.ErrInvalidRequest, key)
}

// transactionFilter reads the shared journal query parameters.
func transactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(q.Get("type")),
		Status: domain.TransactionStatus(q.Get("status")),
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}
	var err error
	if filter.From, err = parseTimeQuery(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeQuery(r, "to"); err != nil {
		return filter, err
	}
	if filter.To != nil && len(q.Get("to")) == len(time.DateOnly) {
		// A bare date covers the whole day.
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return filter, nil
}
