package monitor

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agendacidade/api/internal/config"
)

func TestNewSlackNotifierSemWebhook(t *testing.T) {
	if n := NewSlackNotifier(""); n != nil {
		t.Fatalf("esperava nil sem webhook, obteve %#v", n)
	}
}

func TestNewServiceDescartaNotifierVazio(t *testing.T) {
	// sem webhook, o serviço não pode tentar enviar alerta nenhum, mesmo
	// recebendo o ponteiro nulo embrulhado na interface
	svc := NewService(nil, nil, config.MonitorConfig{}, zerolog.Nop(), NewSlackNotifier(""))
	if svc.notifier != nil {
		t.Fatalf("notifier deveria ser descartado, obteve %#v", svc.notifier)
	}
}

func TestNewServiceMantemNotifierConfigurado(t *testing.T) {
	n := NewSlackNotifier("https://hooks.slack.com/services/T0/B0/x")
	svc := NewService(nil, nil, config.MonitorConfig{}, zerolog.Nop(), n)
	if svc.notifier == nil {
		t.Fatal("notifier configurado não deveria ser descartado")
	}
}

func TestFormatSlackMessage(t *testing.T) {
	msg := formatSlackMessage(AlertMessage{
		Title:    "Prefeitura Zabelê (zabele)",
		Tipo:     TipoProtocoloDuplicado,
		Text:     "protocolo AGD-7 repetido",
		Severity: "warning",
	})

	for _, want := range []string{":warning:", "*Prefeitura Zabelê (zabele)*", "[" + TipoProtocoloDuplicado + "]", "protocolo AGD-7 repetido"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("mensagem %q deveria conter %q", msg, want)
		}
	}
}
