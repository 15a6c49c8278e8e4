package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2/json2"
)

// ExchangeMethod is the JSON-RPC method a responder serves envelopes under.
const ExchangeMethod = "Envelope.Exchange"

// ErrNoReply is returned by HTTP.ReceiveText when no exchange is waiting to be read.
var ErrNoReply = errors.New("transport: no reply pending")

// ExchangeArgs carries a request envelope as a JSON-RPC parameter.
type ExchangeArgs struct {
	Text string `json:"text"`
}

// ExchangeReply carries a response envelope as a JSON-RPC result.
type ExchangeReply struct {
	Text string `json:"text"`
}

// HTTP posts each envelope to a JSON-RPC endpoint. The exchange completes inside
// SendText; ReceiveText hands back the buffered reply.
type HTTP struct {
	url    string
	client *http.Client

	mu      sync.Mutex
	pending []string
}

// NewHTTP returns a transport for url. A nil client means http.DefaultClient.
func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: url, client: client}
}

func (h *HTTP) SendText(text string) error {
	body, err := json2.EncodeClientRequest(ExchangeMethod, &ExchangeArgs{Text: text})
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to issue request: %w", err)
	}
	defer CleanlyCloseBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("received status code: %d", resp.StatusCode)
	}

	var reply ExchangeReply
	if err := json2.DecodeClientResponse(resp.Body, &reply); err != nil {
		return fmt.Errorf("failed to decode client response: %w", err)
	}

	h.mu.Lock()
	h.pending = append(h.pending, reply.Text)
	h.mu.Unlock()
	return nil
}

// ReceiveText returns the oldest buffered reply.
func (h *HTTP) ReceiveText() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.pending) == 0 {
		return "", ErrNoReply
	}
	text := h.pending[0]
	h.pending = h.pending[1:]
	return text, nil
}

// CleanlyCloseBody drains and closes an HTTP response body so the connection can be
// reused.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}
