package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Notifier entrega alertas de integridade a um canal externo.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}

// AlertMessage descreve uma ocorrência pronta para publicação.
type AlertMessage struct {
	Title    string
	Tipo     string
	Text     string
	Severity string
}

// SlackNotifier publica alertas via incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil quando não há webhook configurado; o serviço
// de monitoramento trata notifier nulo como "sem alertas".
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, msg AlertMessage) error {
	if s == nil || s.webhookURL == "" {
		return errors.New("slack notifier não configurado")
	}

	body, err := json.Marshal(map[string]any{"text": formatSlackMessage(msg)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("envio ao slack falhou")
	}
	return nil
}

func formatSlackMessage(msg AlertMessage) string {
	emoji := ":information_source:"
	switch msg.Severity {
	case "warning":
		emoji = ":warning:"
	case "critical":
		emoji = ":rotating_light:"
	}

	out := emoji
	if msg.Title != "" {
		out += " *" + msg.Title + "*"
	}
	if msg.Tipo != "" {
		out += " [" + msg.Tipo + "]"
	}
	return out + "\n" + msg.Text
}
