package httputil

import (
	"context"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client is a thin wrapper around http.Client with a bounded timeout on
// every request.
type Client struct {
	client *http.Client
}

// NewClient returns a client whose requests time out after the given
// duration.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
	}
}

// NewHTTPRequest performs the http call and returns the status code and the
// raw body, leaving status handling to the caller.
func (c *Client) NewHTTPRequest(
	ctx context.Context,
	method, url, bodyString string,
	header map[string]string,
) (int, string, error) {
	var body *strings.Reader
	if len(bodyString) > 0 {
		body = strings.NewReader(bodyString)
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := c.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := ioutil.ReadAll(rs.Body)
	if err != nil {
		return 0, "", err
	}

	return rs.StatusCode, string(bodyBytes), nil
}

// IsTimeout returns whether the given transport error is a timeout, either
// of the client-side bound or of the request context.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
