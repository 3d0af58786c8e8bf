// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package calling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/juju/clock"
)

const apiVersion = "2023-10-15"

// Config holds configuration for creating a Client.
type Config struct {
	// ConnectionString is the ACS connection string, as the provisioning
	// run stored it in the vault.
	ConnectionString string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is
	// used.
	HTTPClient *http.Client
	// Clock supplies the signature timestamps. If nil, the wall clock is
	// used.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
}

// Client places calls through an ACS resource.
type Client struct {
	endpoint   string
	key        []byte
	httpClient *http.Client
	clock      clock.Clock
	log        *slog.Logger
}

// NewClient creates a call automation client from an ACS connection
// string.
func NewClient(cfg Config) (*Client, error) {
	cs, err := ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint:   cs.Endpoint,
		key:        cs.AccessKey,
		httpClient: httpClient,
		clock:      clk,
		log:        log,
	}, nil
}

// CallRequest describes one outbound PSTN call.
type CallRequest struct {
	// From is the caller id, an E.164 number owned by the ACS resource.
	From string
	// To is the E.164 number to dial.
	To string
	// CallbackURI receives mid-call events. ACS requires it even when
	// nobody listens.
	CallbackURI string
}

// CallResult is the accepted call as ACS reports it.
type CallResult struct {
	CallConnectionID string `json:"callConnectionId"`
	State            string `json:"callConnectionState"`
}

// CallError is a non-2xx answer from ACS.
type CallError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("acs returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type phoneNumber struct {
	Value string `json:"value"`
}

type callTarget struct {
	Kind        string      `json:"kind"`
	RawID       string      `json:"rawId"`
	PhoneNumber phoneNumber `json:"phoneNumber"`
}

type createCallRequest struct {
	Targets              []callTarget `json:"targets"`
	SourceCallerIDNumber phoneNumber  `json:"sourceCallerIdNumber"`
	CallbackURI          string       `json:"callbackUri"`
}

// PlaceCall asks ACS to dial req.To from req.From. It returns once ACS
// accepts the call; connection progress arrives on the callback URI.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	if err := ValidateNumber(req.From); err != nil {
		return nil, fmt.Errorf("caller id: %w", err)
	}
	if err := ValidateNumber(req.To); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	payload := createCallRequest{
		Targets: []callTarget{{
			Kind:        "phoneNumber",
			RawID:       "4:" + req.To,
			PhoneNumber: phoneNumber{Value: req.To},
		}},
		SourceCallerIDNumber: phoneNumber{Value: req.From},
		CallbackURI:          req.CallbackURI,
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/calling/callConnections", payload)
	if err != nil {
		return nil, err
	}

	var result CallResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing createCall response: %w", err)
	}
	c.log.Info("call placed", "call_connection_id", result.CallConnectionID, "state", result.State)
	return &result, nil
}

// doRequest signs and performs one request against the ACS endpoint.
// On 2xx it returns the body; on anything else a *CallError.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	requestURL := c.endpoint + path + "?" + url.Values{"api-version": []string{apiVersion}}.Encode()
	request, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	sign(request, c.key, encoded, c.clock.Now())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// ACS error responses share one JSON envelope.
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal(responseBody, &envelope); jsonErr != nil || envelope.Error.Code == "" {
		return nil, &CallError{StatusCode: response.StatusCode, Message: string(responseBody)}
	}
	return nil, &CallError{
		StatusCode: response.StatusCode,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
}
