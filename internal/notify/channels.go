package notify

import (
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"sandwach/internal/httputil"
)

// Channel delivers a rendered notification. Channels succeed or fail
// independently of each other.
type Channel interface {
	Name() string
	Send(title, body string) error
}

// NtfyChannel publishes to an ntfy topic.
type NtfyChannel struct {
	server string
	topic  string
	token  string
	client *http.Client
}

func NewNtfyChannel(server, topic, token string) *NtfyChannel {
	return &NtfyChannel{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		token:  token,
		client: httputil.NewClient(10 * time.Second),
	}
}

func (n *NtfyChannel) Name() string { return "ntfy" }

func (n *NtfyChannel) Send(title, body string) error {
	req, err := http.NewRequest(http.MethodPost, n.server+"/"+n.topic, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", title)
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ntfy: status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// DesktopChannel shells out to notify-send for local desktop notifications.
type DesktopChannel struct {
	run func(title, body string) error
}

func NewDesktopChannel() *DesktopChannel {
	return &DesktopChannel{
		run: func(title, body string) error {
			return exec.Command("notify-send", title, body).Run()
		},
	}
}

func (d *DesktopChannel) Name() string { return "desktop" }

func (d *DesktopChannel) Send(title, body string) error {
	if err := d.run(title, body); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}
