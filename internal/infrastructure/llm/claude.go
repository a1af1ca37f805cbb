// Package llm summarizes a report through the Anthropic messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trendwatch/internal/domain"
	"trendwatch/internal/ports"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultModel     = "claude-sonnet-4-20250514"
	apiVersion       = "2023-06-01"
	maxOutputTokens  = 2048
	maxTitlesPerCall = 50
)

// ClaudeAnalyzer asks the model for a short trend analysis of the matched
// titles. Failures are reported to the caller, which treats the analysis
// as optional.
type ClaudeAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.Analyzer = (*ClaudeAnalyzer)(nil)

func NewClaudeAnalyzer(apiKey, model string) *ClaudeAnalyzer {
	if model == "" {
		model = defaultModel
	}
	return &ClaudeAnalyzer{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze returns a Chinese-language trend summary for the report.
func (a *ClaudeAnalyzer) Analyze(ctx context.Context, report domain.ReportData) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("analyzer api key is empty")
	}

	payload, err := json.Marshal(messageRequest{
		Model:     a.model,
		MaxTokens: maxOutputTokens,
		System:    "你是热点趋势分析助手。用中文给出简洁的趋势分析，不超过三段。",
		Messages:  []message{{Role: "user", Content: buildPrompt(report)}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call analyze api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read analyze response: %w", err)
	}

	var parsed messageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode analyze response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("analyze api %s: %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("analyze api returned %s", resp.Status)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", fmt.Errorf("analyze api returned empty content")
	}

	return strings.TrimSpace(parsed.Content[0].Text), nil
}

func buildPrompt(report domain.ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "以下是 %s 的热点监控结果，共匹配 %d 个关键词组。请分析主要趋势：\n\n",
		report.GeneratedAt.Format("2006-01-02 15:04"), len(report.Stats))

	written := 0
	for _, stat := range report.Stats {
		fmt.Fprintf(&b, "## %s（%d 条）\n", stat.GroupKey, stat.Count)
		for _, title := range stat.Titles {
			if written >= maxTitlesPerCall {
				break
			}
			marker := ""
			if title.IsNew {
				marker = " [新]"
			}
			fmt.Fprintf(&b, "- [%s] %s%s\n", title.SourceName, title.Title, marker)
			written++
		}
		if written >= maxTitlesPerCall {
			break
		}
	}
	return b.String()
}
