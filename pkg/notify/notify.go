package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/imroc/req/v3"
)

// Notifier delivers one rendered alert message to a human. Delivery is
// best-effort and independent of evaluation, a failed delivery never
// breaks a pass.
type Notifier interface {
	Deliver(ctx context.Context, text string) error
}

const telegramBaseURL = "https://api.telegram.org"

// Telegram posts alerts to a chat through the bot API.
type Telegram struct {
	client *req.Client
	token  string
	chatID string
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		client: req.C().SetBaseURL(telegramBaseURL).SetTimeout(5 * time.Second),
		token:  token,
		chatID: chatID,
	}
}

// WithBaseURL points the client at a different API host, used in tests.
func (t *Telegram) WithBaseURL(url string) *Telegram {
	t.client.SetBaseURL(url)
	return t
}

func (t *Telegram) Deliver(ctx context.Context, text string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		return err
	}
	if resp.IsErrorState() {
		return fmt.Errorf("telegram: %s", resp.Status)
	}
	return nil
}

// Console writes alerts to a writer, the default sink when no telegram
// credentials are configured.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Deliver(ctx context.Context, text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}
