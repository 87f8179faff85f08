package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json2 "github.com/gorilla/rpc/v2/json2"
)

// cleanlyCloseBody drains and closes an HTTP response body so the
// underlying connection can be reused, avoiding the spurious HTTP/2 GOAWAY
// errors closing a body with unread data can cause.
func cleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// call issues one JSON-RPC 2.0 request to uri and decodes the result into
// reply.
func call(ctx context.Context, httpClient *http.Client, uri, method string, params, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("driver: encoding request for %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("driver: building request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("driver: issuing request for %s: %w", method, err)
	}
	defer cleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("driver: %s returned status %d", method, resp.StatusCode)
	}

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("driver: decoding response for %s: %w", method, err)
	}
	return nil
}
