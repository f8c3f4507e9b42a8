package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OllamaConfig configures the Ollama-backed summarizer.
type OllamaConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OllamaSummarizer generates narratives through a local Ollama server.
type OllamaSummarizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOllamaSummarizer creates the summarizer. It does not verify
// connectivity; call Heartbeat for an early health check.
func NewOllamaSummarizer(cfg OllamaConfig, logger *zap.Logger) (*OllamaSummarizer, error) {
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.URL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OllamaSummarizer{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Summarize builds the prompt from the input and runs one
// non-streaming generate call.
func (s *OllamaSummarizer) Summarize(ctx context.Context, in Input) (string, string, error) {
	noStream := false
	reqBody, err := json.Marshal(generateRequest{
		Model:  s.model,
		Prompt: buildPrompt(in),
		Stream: &noStream,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return "", "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return "", "", fmt.Errorf("ollama generate: %s", msg)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode generate response: %w", err)
	}
	return strings.TrimSpace(out.Response), s.model, nil
}

// Heartbeat checks whether the Ollama server is reachable.
func (s *OllamaSummarizer) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama heartbeat: %s", resp.Status)
	}
	return nil
}

// buildPrompt serializes the input into the instruction prompt. The
// numbers the model sees are the same ones the API returns; the model
// only phrases them.
func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are writing a short executive summary for a network operations report. ")
	b.WriteString("Use only the figures below, in 3 to 5 sentences, plain prose, no markdown.\n\n")

	scope := "all plazas"
	if in.Plaza != "" {
		scope = "plaza " + in.Plaza
	}
	fmt.Fprintf(&b, "Scope: %s\n", scope)
	for _, p := range in.Plazas {
		fmt.Fprintf(&b, "Plaza %s: %d sites, %d devices (%d active), mean utilization %.1f%%, max %.1f%%, %.0f Mbps capacity, %.0f Mbps traffic, %d alerts\n",
			p.Plaza, p.SiteCount, p.DeviceCount, p.ActiveDevices,
			p.MeanUtilization, p.MaxUtilization,
			p.TotalCapacityMbps, p.TotalTrafficMbps, p.AlertCount)
	}
	fmt.Fprintf(&b, "Critical sites: %d of %d, mean health %.1f\n",
		in.Critical.CriticalCount, in.Critical.TotalSites, in.Critical.MeanHealth)
	fmt.Fprintf(&b, "Engineering alerts: %d open, %d at capacity risk\n",
		in.AlertCount, in.CapacityRisks)
	return b.String()
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream *bool  `json:"stream,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
