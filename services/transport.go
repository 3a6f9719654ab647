package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"league-run-system/logger"
)

// Message is the content handed to the chat gateway for delivery. Buttons
// are rendered by the gateway; clicks come back as /events/button calls
// carrying the session ref and choice.
type Message struct {
	Title      string   `json:"title,omitempty"`
	Body       string   `json:"body"`
	SessionRef string   `json:"session_ref,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	ArtifactURL string  `json:"artifact_url,omitempty"`
}

// Transport is the external chat collaborator. Delivery failures are the
// transport's problem: callers log them and move on, state mutations are
// never rolled back or retried because a notification was lost.
type Transport interface {
	SendDirectMessage(player string, msg Message) error
	SendChannelMessage(channel string, msg Message) error
}

// GatewayTransport delivers messages through the chat gateway's HTTP API.
type GatewayTransport struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func NewGatewayTransport(baseURL, serviceToken string) *GatewayTransport {
	return &GatewayTransport{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (t *GatewayTransport) SendDirectMessage(player string, msg Message) error {
	return t.post(fmt.Sprintf("%s/api/v1/dm/%s", t.baseURL, player), msg)
}

func (t *GatewayTransport) SendChannelMessage(channel string, msg Message) error {
	return t.post(fmt.Sprintf("%s/api/v1/channels/%s/messages", t.baseURL, channel), msg)
}

func (t *GatewayTransport) post(url string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", ErrDelivery, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", t.serviceToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}

// notifyDM is the fire-and-forget DM helper used across the core: failures
// are logged and swallowed.
func notifyDM(t Transport, player string, msg Message) {
	if t == nil {
		return
	}
	if err := t.SendDirectMessage(player, msg); err != nil {
		logger.Warn("DM delivery failed", "player", player, "error", err)
	}
}

// notifyChannel mirrors notifyDM for channel posts.
func notifyChannel(t Transport, channel string, msg Message) {
	if t == nil || channel == "" {
		return
	}
	if err := t.SendChannelMessage(channel, msg); err != nil {
		logger.Warn("channel delivery failed", "channel", channel, "error", err)
	}
}
