// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/platform-engineering-labs/dialtone/pkg/calling"
	"github.com/platform-engineering-labs/dialtone/pkg/provision"
)

// A call request is a handful of phone numbers; anything larger is
// not a call request.
const maxRequestBodySize = 4 * 1024

// DialRequest is the body of POST /api/call.
type DialRequest struct {
	// To is the E.164 number to dial.
	To string `json:"to"`
	// From overrides the configured caller id when set.
	From string `json:"from,omitempty"`
}

// DialResponse reports the accepted call.
type DialResponse struct {
	CallConnectionID string `json:"callConnectionId"`
	State            string `json:"callConnectionState"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler implements the calling endpoint.
type Handler struct {
	secrets      provision.SecretStore
	vaultURI     string
	secretName   string
	sourceNumber string
	callbackURI  string
	httpClient   *http.Client
	logger       *slog.Logger
}

// HandleCall validates the request, reads the connection string from
// the vault, and places the call.
func (h *Handler) HandleCall(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req DialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	if err := calling.ValidateNumber(req.To); err != nil {
		h.sendError(w, http.StatusBadRequest, "to: %v", err)
		return
	}
	from := req.From
	if from == "" {
		from = h.sourceNumber
	}
	if from == "" {
		h.sendError(w, http.StatusBadRequest, "no caller id: set \"from\" in the request or configure a source number")
		return
	}
	if err := calling.ValidateNumber(from); err != nil {
		h.sendError(w, http.StatusBadRequest, "from: %v", err)
		return
	}

	connectionString, err := h.secrets.Get(r.Context(), h.vaultURI, h.secretName)
	if err != nil {
		h.logger.Error("reading connection string", "vault", h.vaultURI, "secret", h.secretName, "error", err)
		h.sendError(w, http.StatusBadGateway, "reading connection string: %v", err)
		return
	}

	client, err := calling.NewClient(calling.Config{
		ConnectionString: connectionString,
		HTTPClient:       h.httpClient,
		Logger:           h.logger,
	})
	if err != nil {
		h.logger.Error("building calling client", "error", err)
		h.sendError(w, http.StatusInternalServerError, "invalid connection string: %v", err)
		return
	}

	result, err := client.PlaceCall(r.Context(), calling.CallRequest{
		From:        from,
		To:          req.To,
		CallbackURI: h.callbackURI,
	})
	if err != nil {
		var callErr *calling.CallError
		if errors.As(err, &callErr) {
			h.sendError(w, http.StatusBadGateway, "call rejected: %v", callErr)
			return
		}
		h.sendError(w, http.StatusBadGateway, "placing call: %v", err)
		return
	}

	h.logger.Info("call placed",
		"to", req.To,
		"callConnectionId", result.CallConnectionID,
		"duration", time.Since(startTime),
	)

	h.writeJSON(w, http.StatusAccepted, DialResponse{
		CallConnectionID: result.CallConnectionID,
		State:            result.State,
	})
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sendError(w http.ResponseWriter, status int, format string, args ...any) {
	h.writeJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

// writeJSON encodes value as JSON into w. If encoding fails, typically
// because the client disconnected, the error is logged; the caller
// cannot send a corrective response to a dead client.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err, "status", status)
	}
}
