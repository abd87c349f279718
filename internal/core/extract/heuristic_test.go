package extract

import (
	"strings"
	"testing"

	"recipe-extractor/internal/infrastructure/config"
)

func testHeuristicConfig() config.HeuristicConfig {
	return config.HeuristicConfig{
		MinLength:   20,
		MinKeywords: 3,
		Keywords:    []string{"recipe", "ingredient", "cup", "tbsp", "bake", "食譜", "食材", "作法"},
	}
}

func TestLooksLikeRecipe(t *testing.T) {
	cfg := testHeuristicConfig()

	tests := []struct {
		name    string
		caption string
		want    bool
	}{
		{
			name:    "英文食譜說明",
			caption: "Easy pasta recipe! You need 1 cup flour, 2 tbsp olive oil and one secret ingredient.",
			want:    true,
		},
		{
			name:    "中文食譜說明",
			caption: "超簡單的紅燒牛肉麵食譜，食材只要牛腱和洋蔥，作法全部寫在這裡",
			want:    true,
		},
		{
			name:    "大小寫不影響比對",
			caption: "My favorite RECIPE needs two CUPS of flour and a TBSP of sugar",
			want:    true,
		},
		{
			name:    "關鍵字不足",
			caption: "Beautiful sunset timelapse filmed over the bay with a recipe for relaxation",
			want:    false,
		},
		{
			name:    "長度不足",
			caption: "recipe cup tbsp",
			want:    false,
		},
		{
			name:    "同一關鍵字只算一次",
			caption: "recipe recipe recipe recipe recipe recipe and nothing else in here",
			want:    false,
		},
		{
			name:    "空白說明",
			caption: "   \n\t  ",
			want:    false,
		},
		{
			name:    "空字串",
			caption: "",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeRecipe(tt.caption, &cfg); got != tt.want {
				t.Errorf("LooksLikeRecipe(%q) = %v, want %v", tt.caption, got, tt.want)
			}
		})
	}
}

func TestLooksLikeRecipeThresholds(t *testing.T) {
	t.Run("門檻歸零時只看長度", func(t *testing.T) {
		cfg := config.HeuristicConfig{MinLength: 20, MinKeywords: 0}
		if !LooksLikeRecipe("a perfectly ordinary caption about nothing", &cfg) {
			t.Error("MinKeywords 為 0 時長度足夠就應通過")
		}
		if LooksLikeRecipe("too short", &cfg) {
			t.Error("長度不足仍應擋下")
		}
	})

	t.Run("rune 長度以字元計", func(t *testing.T) {
		cfg := config.HeuristicConfig{MinLength: 10, MinKeywords: 1, Keywords: []string{"食譜"}}
		// 10 個中文字元，位元組數遠超過 10
		caption := "牛肉麵食譜共十個字"
		if utf8Len := len([]rune(caption)); utf8Len < 9 {
			t.Fatalf("測試字串長度不如預期: %d", utf8Len)
		}
		if !LooksLikeRecipe(caption+"喔", &cfg) {
			t.Error("中文字元長度應以 rune 計算")
		}
	})

	t.Run("關鍵字清單含空白項目", func(t *testing.T) {
		cfg := config.HeuristicConfig{
			MinLength:   5,
			MinKeywords: 1,
			Keywords:    []string{"", "  ", "noodle"},
		}
		if LooksLikeRecipe(strings.Repeat("x", 30), &cfg) {
			t.Error("空白關鍵字不應算命中")
		}
		if !LooksLikeRecipe("fresh noodle soup tutorial", &cfg) {
			t.Error("正常關鍵字應命中")
		}
	})
}
