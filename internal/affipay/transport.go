package affipay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

const defaultHTTPTimeout = 10 * time.Second

// Transport performs the raw HTTP calls to the gateway and turns failures
// into the structured error taxonomy. It never logs credentials or bodies.
type Transport struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTransport(logger *slog.Logger, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Transport{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PostJSON sends payload as a JSON body.
func (t *Transport) PostJSON(ctx context.Context, target string, header http.Header, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return t.post(ctx, target, header, bytes.NewReader(b))
}

// PostForm sends form as a urlencoded body.
func (t *Transport) PostForm(ctx context.Context, target string, header http.Header, form url.Values) ([]byte, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.post(ctx, target, header, strings.NewReader(form.Encode()))
}

func (t *Transport) post(ctx context.Context, target string, header http.Header, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	t.logger.Debug("gateway request", slog.String("url", target))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	// The gateway reports some failures with a 2xx status and an error field
	// in the body, so the payload is inspected regardless of status.
	if apiErr := parseAPIError(resp.StatusCode, raw); apiErr != nil {
		return nil, apiErr
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{Status: resp.StatusCode}
	}
	return raw, nil
}

// parseAPIError returns an APIError when the body carries a gateway error
// field, in either its string or object form.
func parseAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	if len(envelope.Error) == 0 || string(envelope.Error) == "null" || string(envelope.Error) == "false" {
		return nil
	}

	apiErr := &APIError{
		Status:      status,
		Description: envelope.ErrorDescription,
		Body:        raw,
	}
	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		apiErr.Code = code
		return apiErr
	}
	var detail ErrorDetail
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		apiErr.Detail = &detail
		return apiErr
	}
	return apiErr
}
