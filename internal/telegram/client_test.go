package telegram

import (
	"strings"
	"testing"
	"time"

	"stocksleuth/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello World"},
		{"Hello_World", "Hello\\_World"},
		{"Test*bold*", "Test\\*bold\\*"},
		{"Price: $100.50", "Price: $100\\.50"},
		{"[link](url)", "\\[link\\]\\(url\\)"},
		{"~strikethrough~", "\\~strikethrough\\~"},
		{"`code`", "\\`code\\`"},
		{">blockquote", "\\>blockquote"},
		{"#header", "\\#header"},
		{"+plus-minus", "\\+plus\\-minus"},
		{"=equal|pipe", "\\=equal\\|pipe"},
		{"{brace}", "\\{brace\\}"},
		{"end!", "end\\!"},
		{"", ""},
		{"_*[]()~`>#+-=|{}.!", "\\_\\*\\[\\]\\(\\)\\~\\`\\>\\#\\+\\-\\=\\|\\{\\}\\.\\!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := escapeMarkdownV2(tt.input)
			if result != tt.expected {
				t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	// NewClient with non-numeric chatID should return an error
	// Note: This test exercises the chat ID parsing error path
	// The bot token validation happens first (network call), so we use a clearly
	// invalid format to test the error handling flow
	_, err := NewClient("", "not-a-number", 3, time.Second)
	if err == nil {
		t.Error("Expected error for invalid chat ID, got nil")
	}
}

func TestFormatReport(t *testing.T) {
	anomaly, err := models.NewAnomalyEvent("TSLA", 242.50, -12.3, 95_000_000, 4.2, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}

	state := &models.InvestigationState{
		ID:      "inv-1",
		Anomaly: anomaly,
		Evaluation: &models.EvidenceEvaluation{
			ExplanationFound:   true,
			ExplanationQuality: models.QualityGood,
			RootCause:          "Vehicle recall announcement",
			Confidence:         0.85,
		},
		Iteration: 1,
	}

	c := &Client{}
	msg := c.formatReport(state)

	for _, want := range []string{
		"📉",
		"*SOLVED*",
		"Vehicle recall announcement",
		"85%",
		"Iterations: 2",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "242.50") {
		t.Error("Unescaped dot in price survived into MarkdownV2 message")
	}
}

func TestFormatReportUnsolved(t *testing.T) {
	anomaly, err := models.NewAnomalyEvent("NVDA", 900.00, 11.1, 50_000_000, 3.5, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}

	state := &models.InvestigationState{
		Anomaly: anomaly,
		Evaluation: &models.EvidenceEvaluation{
			ExplanationFound:   false,
			ExplanationQuality: models.QualityPoor,
			RootCause:          models.RootCauseUndetermined,
			Confidence:         0.3,
		},
	}

	msg := (&Client{}).formatReport(state)
	if !strings.Contains(msg, "*UNSOLVED*") {
		t.Errorf("Expected UNSOLVED marker:\n%s", msg)
	}
	if !strings.Contains(msg, "📈") {
		t.Errorf("Expected surge emoji for positive move:\n%s", msg)
	}
}

func TestFormatReportDegraded(t *testing.T) {
	c := &Client{}
	if msg := c.formatReport(nil); !strings.Contains(msg, "no data") {
		t.Errorf("Unexpected nil-state message: %q", msg)
	}

	anomaly, err := models.NewAnomalyEvent("AAPL", 150.00, -10.5, 80_000_000, 3.1, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}
	msg := c.formatReport(&models.InvestigationState{Anomaly: anomaly})
	if !strings.Contains(msg, "without an evaluation") {
		t.Errorf("Expected missing-evaluation notice: %q", msg)
	}
}
