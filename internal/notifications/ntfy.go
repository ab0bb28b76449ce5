package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"editorial/internal/config"
)

const userAgent = "Editorial-Go/0.1.0"

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func newNtfyService(n config.Notifications) *ntfyService {
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(n.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
	}
}

// Send posts the message to the topic. ntfy has no addressing, so the
// recipients are listed at the top of the body.
func (n *ntfyService) Send(ctx context.Context, msg Message) error {
	if n == nil || n.client == nil || n.endpoint == "" {
		return nil
	}

	body := "To: " + strings.Join(msg.Recipients, ", ") + "\n\n" + msg.Body
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Subject != "" {
		req.Header.Set("Title", msg.Subject)
	}
	req.Header.Set("Tags", "editorial")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
