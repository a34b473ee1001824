package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adspredia.site/platform-bot/internal/common"
	"adspredia.site/platform-bot/internal/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.Config{
		OracleBaseURL: serverURL,
		OracleModel:   "test-model",
		OracleAPIKey:  "test-key",
		OracleTimeout: 5 * time.Second,
	})
}

func TestVerifyReturnsVerdict(t *testing.T) {
	var gotPath string
	var gotReq generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content content `json:"content"`
			}{
				{Content: content{Parts: []part{{Text: "  APPROVE — proof matches.  "}}}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	verdict, err := c.Verify(context.Background(), "Подписаться на канал",
		[]string{"Открыть канал", "Нажать Subscribe"}, "скриншот", "image/png", "QUJD")
	require.NoError(t, err)
	require.Equal(t, "APPROVE — proof matches.", verdict)

	require.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)
	require.Len(t, gotReq.Contents, 1)
	parts := gotReq.Contents[0].Parts
	require.Len(t, parts, 2)
	require.Contains(t, parts[0].Text, "Подписаться на канал")
	require.Contains(t, parts[0].Text, "1. Открыть канал")
	require.NotNil(t, parts[1].InlineData)
	require.Equal(t, "image/png", parts[1].InlineData.MimeType)
}

func TestVerifyWithoutImageSkipsInlineData(t *testing.T) {
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content content `json:"content"`
			}{
				{Content: content{Parts: []part{{Text: "REJECT"}}}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Verify(context.Background(), "Task", nil, "text only", "", "")
	require.NoError(t, err)
	require.Len(t, gotReq.Contents[0].Parts, 1)
}

func TestVerifyHTTPErrorWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Verify(context.Background(), "Task", nil, "p", "", "")
	require.ErrorIs(t, err, common.ErrOracleUnavailable)
}

func TestVerifyEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Verify(context.Background(), "Task", nil, "p", "", "")
	require.ErrorIs(t, err, common.ErrOracleUnavailable)
}

func TestVerifyConnectionRefused(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Verify(context.Background(), "Task", nil, "p", "", "")
	require.ErrorIs(t, err, common.ErrOracleUnavailable)
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("T", []string{"step"}, "proof")
	require.True(t, strings.HasSuffix(p, "Reply with APPROVE or REJECT and one short sentence of reasoning."))
}
