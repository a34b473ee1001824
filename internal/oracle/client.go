// Package oracle — совещательная проверка доказательств через
// Gemini-совместимый API. Вердикт оракула — только рекомендация
// модератору, решения он не принимает.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
)

// Client ходит в generateContent-эндпоинт модели.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewClient создаёт клиента оракула.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.OracleTimeout},
		baseURL:    strings.TrimRight(cfg.OracleBaseURL, "/"),
		model:      cfg.OracleModel,
		apiKey:     cfg.OracleAPIKey,
	}
}

// Структуры запроса/ответа generateContent. Описаны только
// используемые поля.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Verify отправляет доказательство на проверку и возвращает текстовую
// рекомендацию. Любой сбой заворачивается в ErrOracleUnavailable —
// вызывающая сторона решает, что писать в вердикт.
func (c *Client) Verify(ctx context.Context, title string, instructions []string, proofText, imageMime, imageB64 string) (string, error) {
	prompt := buildPrompt(title, instructions, proofText)

	parts := []part{{Text: prompt}}
	if imageB64 != "" {
		mime := imageMime
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: imageB64}})
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Тело нужно только для диагностики, читаем кусок
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: статус %d: %s", common.ErrOracleUnavailable, resp.StatusCode, snippet)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: пустой ответ модели", common.ErrOracleUnavailable)
	}

	verdict := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if verdict == "" {
		return "", fmt.Errorf("%w: пустой вердикт", common.ErrOracleUnavailable)
	}
	return verdict, nil
}

// buildPrompt собирает инструкцию модели. Просим короткую
// рекомендацию APPROVE/REJECT с одним предложением обоснования.
func buildPrompt(title string, instructions []string, proofText string) string {
	var b strings.Builder
	b.WriteString("You are reviewing a proof of task completion on a micro-task platform.\n")
	fmt.Fprintf(&b, "Task: %s\n", title)
	if len(instructions) > 0 {
		b.WriteString("Instructions:\n")
		for i, step := range instructions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	if proofText != "" {
		fmt.Fprintf(&b, "Worker's proof text: %s\n", proofText)
	}
	b.WriteString("Reply with APPROVE or REJECT and one short sentence of reasoning.")
	return b.String()
}
