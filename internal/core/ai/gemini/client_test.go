package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Gemini: config.GeminiConfig{
			APIKey:    "gm-test",
			BaseURL:   baseURL,
			Model:     "gemini-2.0-flash",
			MaxTokens: 2000,
			Timeout:   5 * time.Second,
		},
	}
}

func geminiResponse(recipe string) string {
	out := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": recipe}},
			}},
		},
	}
	data, _ := json.Marshal(out)
	return string(data)
}

const beefNoodleJSON = `{"title": "紅燒牛肉麵", "ingredients": [{"name": "牛腱", "amount": "600", "unit": "克"}], "steps": [{"step_number": 1, "description": "牛腱切塊汆燙"}]}`

func TestNormalizeAttachesVideoWhenNoTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "gm-test" {
			t.Errorf("api key header = %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request not json: %v", err)
		}
		if len(req.Contents) != 1 {
			t.Fatalf("contents = %d", len(req.Contents))
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 {
			t.Fatalf("parts = %d, want video part and text part", len(parts))
		}
		if parts[0].FileData == nil || parts[0].FileData.FileURI != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
			t.Errorf("file part = %+v", parts[0])
		}
		if parts[1].Text == "" {
			t.Error("text part missing")
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("generation config = %+v", req.GenerationConfig)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, geminiResponse(beefNoodleJSON))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	in := &provider.Input{
		Platform:  common.PlatformYouTube,
		Key:       "youtube:dQw4w9WgXcQ",
		SourceURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Caption:   "Perfect Beef Noodle Soup at Home",
	}

	result, err := c.Normalize(context.Background(), in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if result.Recipe.Title != "紅燒牛肉麵" {
		t.Errorf("title = %q", result.Recipe.Title)
	}
	if result.Recipe.ID != "dQw4w9WgXcQ" {
		t.Errorf("id not backfilled: %q", result.Recipe.ID)
	}
}

func TestNormalizeSkipsVideoWithTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("request not json: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 1 || parts[0].FileData != nil {
			t.Errorf("parts = %+v, want single text part", parts)
		}

		io.WriteString(w, geminiResponse(beefNoodleJSON))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	in := &provider.Input{
		Platform:   common.PlatformYouTube,
		Key:        "youtube:dQw4w9WgXcQ",
		SourceURL:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Transcript: "today we are making beef noodle soup from scratch",
	}

	if _, err := c.Normalize(context.Background(), in); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	in := &provider.Input{Platform: common.PlatformYouTube, Key: "youtube:x", SourceURL: "https://youtu.be/x"}

	_, err := c.Normalize(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if !common.IsErrorCode(err, common.ErrCodeNormalizationFailed) {
		t.Errorf("error code = %q, want NORMALIZATION_FAILED", common.ErrorCode(err))
	}
}
