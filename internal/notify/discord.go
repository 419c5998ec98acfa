// Package notify delivers messages to a Discord webhook. Discord caps message
// content at 2000 characters, so long payloads are split at line boundaries
// and posted as consecutive messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/retry"
)

// MaxMessageLen is the Discord content limit per message.
const MaxMessageLen = 2000

type Discord struct {
	webhookURL string
	client     *http.Client
	policy     retry.Policy
}

func NewDiscord(webhookURL string, timeout time.Duration, policy retry.Policy) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

// Send posts content to the webhook, splitting oversized payloads. Parts are
// posted in order; the first failed part aborts the rest so the channel never
// shows a message with a missing head.
func (d *Discord) Send(ctx context.Context, content string) error {
	for _, part := range SplitMessage(content, MaxMessageLen) {
		if err := d.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// SendArticle posts one summarized article in the digest format.
func (d *Discord) SendArticle(ctx context.Context, source, title, url, summary string) error {
	content := fmt.Sprintf("**Source : %s**\n**Titre : %s**\n**Lien :** %s\n\n**Résumé :**\n%s",
		source, title, url, summary)
	return d.Send(ctx, content)
}

func (d *Discord) post(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return d.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			return &retry.Permanent{Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		statusErr := fmt.Errorf("discord webhook status %d", resp.StatusCode)
		if d.policy.RetryableStatus(resp.StatusCode) {
			return statusErr
		}
		return &retry.Permanent{Err: statusErr}
	})
}

// SplitMessage cuts content into chunks of at most limit characters,
// preferring the last newline before the limit as the cut point.
func SplitMessage(content string, limit int) []string {
	var parts []string
	for len(content) > limit {
		cut := strings.LastIndex(content[:limit], "\n")
		if cut <= 0 {
			cut = limit
			parts = append(parts, content[:cut])
			content = content[cut:]
			continue
		}
		parts = append(parts, content[:cut])
		content = content[cut+1:]
	}
	return append(parts, content)
}

// WrapIP brackets each octet ("192.168.0.1" -> "[192].[168].[0].[1]") so chat
// clients do not turn reported addresses into links.
func WrapIP(ip string) string {
	octets := strings.Split(ip, ".")
	for i, o := range octets {
		octets[i] = "[" + o + "]"
	}
	return strings.Join(octets, ".")
}

// FormatNewIPs renders the blocklist alert body for a batch of new addresses.
func FormatNewIPs(ips []string) string {
	var b strings.Builder
	b.WriteString("**🛡️ Nouvelles IP malveillantes :**\n")
	for _, ip := range ips {
		b.WriteString(WrapIP(ip))
		b.WriteString("\n")
	}
	return b.String()
}

// NotifyCompletion posts a best-effort end-of-run marker; failures are only
// logged.
func (d *Discord) NotifyCompletion(ctx context.Context, message string) {
	if err := d.Send(ctx, message); err != nil {
		logger.Warn("completion notification failed", "error", err)
	}
}
