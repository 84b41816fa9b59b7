package affipay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/slog"
)

const (
	chargePath    = "/ecommerce/v2/charge"
	cardTokenPath = "/cardToken/add"
)

// maxTokenRetries bounds the invalid_token recovery cycle: the initial
// attempt plus at most two retries. No other failure is retried.
const maxTokenRetries = 2

// ApprovedDescription is the gateway's literal for an approved charge and
// must match exactly.
const ApprovedDescription = "APROBADA"

// DataResponse is the success payload of the ecommerce endpoints.
type DataResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// ChargeResponse is the decoded body of a charge call.
type ChargeResponse struct {
	Status       bool          `json:"status"`
	DataResponse *DataResponse `json:"dataResponse"`
	Error        *ErrorDetail  `json:"error"`
}

// Approved reports whether the gateway approved the charge.
func (r *ChargeResponse) Approved() bool {
	return r.Status && r.DataResponse != nil && r.DataResponse.Description == ApprovedDescription
}

// CardTokenResponse is the decoded body of a tokenize call.
type CardTokenResponse struct {
	Status       bool          `json:"status"`
	DataResponse *DataResponse `json:"dataResponse"`
	Error        *ErrorDetail  `json:"error"`
}

// Response decodes the gateway error body back into the charge response
// tree, so a decline can be fed to reconciliation. A body that cannot be
// decoded is synthesized from the error fields.
func (e *GatewayError) Response() *ChargeResponse {
	var tree ChargeResponse
	if len(e.Body) > 0 && json.Unmarshal(e.Body, &tree) == nil && tree.Error != nil {
		return &tree
	}
	return &ChargeResponse{
		Status: false,
		Error: &ErrorDetail{
			Code:           e.Code,
			HTTPStatusCode: e.StatusCode,
			Description:    e.Description,
		},
	}
}

// Client orchestrates OAuth and ecommerce calls against one merchant
// account, recovering locally from invalid_token rejections.
type Client struct {
	transport    *Transport
	tokens       *TokenManager
	ecommerceURL string
	logger       *slog.Logger
}

func NewClient(logger *slog.Logger, transport *Transport, tokens *TokenManager, ecommerceURL string) *Client {
	return &Client{
		transport:    transport,
		tokens:       tokens,
		ecommerceURL: ecommerceURL,
		logger:       logger,
	}
}

// Charge places a tokenized-card charge.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	res := &ChargeResponse{}
	if err := c.ecommerceRequest(ctx, chargePath, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AddCardToken stores a card with the gateway and returns its token.
func (c *Client) AddCardToken(ctx context.Context, req CardTokenRequest) (*CardTokenResponse, error) {
	res := &CardTokenResponse{}
	if err := c.ecommerceRequest(ctx, cardTokenPath, req, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ecommerceRequest(ctx context.Context, path string, payload, out any) error {
	retries := maxTokenRetries
	for {
		token, err := c.tokens.EnsureToken(ctx, false)
		if err != nil {
			return err
		}

		header := http.Header{
			"Authorization": {"Bearer " + token},
			"Accept":        {"application/json"},
		}
		raw, err := c.transport.PostJSON(ctx, c.ecommerceURL+path, header, payload)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if apiErr.Code == "invalid_token" {
					c.logger.Warn("gateway rejected access token, refreshing")
					if _, rerr := c.tokens.EnsureToken(ctx, true); rerr != nil {
						return rerr
					}
					if retries > 0 {
						retries--
						c.logger.Info("retrying gateway request",
							slog.String("path", path),
							slog.Int("retries_left", retries))
						continue
					}
				}
				return newGatewayError(apiErr)
			}
			return err
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding gateway response: %w", err)
		}
		return nil
	}
}
