package provider

import (
	"strings"
	"testing"

	"recipe-extractor/internal/pkg/common"
)

func testInput() *Input {
	return &Input{
		Platform:      common.PlatformTikTok,
		Key:           "tiktok:7234567890123456789",
		SourceURL:     "https://www.tiktok.com/@grandma.kitchen/video/7234567890123456789",
		Caption:       "阿嬤的滷肉飯 材料：五花肉、醬油、冰糖",
		Author:        "阿嬤的灶腳",
		CreatorHandle: "@grandma.kitchen",
		Thumbnail:     "https://p16-sign.tiktokcdn.com/cover.jpeg",
	}
}

const validOutput = `{
	"title": "阿嬤的滷肉飯",
	"description": "三樣材料的家常滷肉飯",
	"servings": "4人份",
	"ingredients": [
		{"name": "五花肉", "amount": "600", "unit": "克"},
		{"name": "醬油", "amount": "100", "unit": "毫升"}
	],
	"steps": [
		{"step_number": 1, "description": "五花肉切條"},
		{"step_number": 2, "description": "下鍋炒出油後加醬油與冰糖滷一小時"}
	],
	"tags": ["台菜", "家常菜"]
}`

func TestParseRecipe(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "乾淨的 JSON", raw: validOutput},
		{name: "markdown 圍欄", raw: "```json\n" + validOutput + "\n```"},
		{name: "JSON 前後有廢話", raw: "好的，以下是萃取結果：\n" + validOutput + "\n希望對你有幫助！"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecipe(tt.raw, testInput())
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got.Title != "阿嬤的滷肉飯" {
				t.Errorf("title = %q", got.Title)
			}
			if len(got.Ingredients) != 2 || len(got.Steps) != 2 {
				t.Errorf("ingredients = %d, steps = %d", len(got.Ingredients), len(got.Steps))
			}
		})
	}
}

func TestParseRecipeRepairsUnquotedKeys(t *testing.T) {
	raw := `{title: "蔥花炒蛋", ingredients: [{name: "蛋", amount: "3", unit: "顆"}], steps: [{step_number: 1, description: "打散下鍋"}]}`

	got, err := ParseRecipe(raw, testInput())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Title != "蔥花炒蛋" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Ingredients) != 1 {
		t.Errorf("ingredients = %d", len(got.Ingredients))
	}
}

func TestParseRecipeBackfill(t *testing.T) {
	// 模型編出來的識別欄位必須被權威素材覆蓋
	raw := `{
		"id": "made-up-id",
		"title": "滷肉飯",
		"source_url": "https://example.com/fake",
		"author": "模型自己編的作者",
		"ingredients": [{"name": "五花肉"}],
		"steps": [{"description": "滷"}, {"description": "上桌"}]
	}`

	got, err := ParseRecipe(raw, testInput())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ID != "7234567890123456789" {
		t.Errorf("id = %q", got.ID)
	}
	if got.SourceURL != "https://www.tiktok.com/@grandma.kitchen/video/7234567890123456789" {
		t.Errorf("source_url = %q", got.SourceURL)
	}
	if got.Author != "阿嬤的灶腳" || got.CreatorHandle != "@grandma.kitchen" {
		t.Errorf("author = %q, handle = %q", got.Author, got.CreatorHandle)
	}
	if got.Media == nil || got.Media.Thumbnail != "https://p16-sign.tiktokcdn.com/cover.jpeg" {
		t.Errorf("media = %+v", got.Media)
	}

	// 漏編的步驟編號要補上
	if got.Steps[0].StepNumber != 1 || got.Steps[1].StepNumber != 2 {
		t.Errorf("step numbers = %d, %d", got.Steps[0].StepNumber, got.Steps[1].StepNumber)
	}
}

func TestParseRecipeRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "空輸出", raw: ""},
		{name: "純文字", raw: "抱歉，這支影片跟料理無關。"},
		{name: "空標題", raw: `{"title": "", "ingredients": [], "steps": []}`},
		{name: "沒有食材也沒有步驟", raw: `{"title": "某道菜", "ingredients": [], "steps": []}`},
		{name: "壞掉的 JSON", raw: `{"title": "某道菜", "ingredients": [{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecipe(tt.raw, testInput())
			if err == nil {
				t.Fatal("expected error")
			}
			if !common.IsErrorCode(err, common.ErrCodeNormalizationFailed) {
				t.Errorf("error code = %q, want NORMALIZATION_FAILED", common.ErrorCode(err))
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "原樣保留", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "去掉圍欄", raw: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "去掉大寫圍欄", raw: "```JSON\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "切出大括號區間", raw: "前言 {\"a\":1} 後記", want: `{"a":1}`},
		{name: "沒有 JSON", raw: "完全沒有結構", want: "完全沒有結構"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.raw); got != tt.want {
				t.Errorf("clean = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	in := testInput()
	in.Transcript = "今天教大家滷肉"

	prompt := BuildPrompt(in)
	if !strings.Contains(prompt, in.Caption) {
		t.Error("prompt missing caption")
	}
	if !strings.Contains(prompt, in.Transcript) {
		t.Error("prompt missing transcript")
	}
	if !strings.Contains(prompt, "tiktok") {
		t.Error("prompt missing platform")
	}
	if !strings.Contains(prompt, "JSON") {
		t.Error("prompt missing output format instruction")
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	long := strings.Repeat("滷", 100)
	got := truncate(long, 10)
	if len([]rune(got)) != 10 {
		t.Errorf("rune length = %d", len([]rune(got)))
	}
	for _, r := range got {
		if r != '滷' {
			t.Fatalf("broken rune %q", r)
		}
	}
}
