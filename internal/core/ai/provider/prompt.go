package provider

import (
	"fmt"
	"strings"
)

// 素材長度上限，過長的逐字稿只取前段
const (
	maxCaptionChars    = 2000
	maxTranscriptChars = 8000
)

// recipePromptTemplate 萃取提示詞，要求模型只輸出 JSON
const recipePromptTemplate = `你是食譜結構化助手。根據影片的說明文字與逐字稿，萃取出一份結構化食譜。

影片平台：%s
影片說明：
%s

逐字稿：
%s

請只輸出 JSON，不要 markdown 圍欄，不要任何多餘文字，格式如下：
{
  "title": "食譜名稱",
  "description": "一句話描述這道菜",
  "servings": "份量",
  "prep_time": "準備時間",
  "cook_time": "烹調時間",
  "ingredients": [
    {"name": "食材名稱", "amount": "數量", "unit": "單位", "preparation": "前處理方式"}
  ],
  "steps": [
    {"step_number": 1, "description": "步驟說明", "time_minutes": 0}
  ],
  "tags": ["標籤"]
}

規則：
1. 標題與步驟使用素材原本的語言，不要翻譯。
2. 找不到的欄位給空字串、0 或空陣列，不要編造。
3. 份量與時間照素材原文保留，例如 "2人份"、"30 分鐘"。
4. 若素材完全與料理無關，輸出 {"title": ""}。`

// BuildPrompt 組出萃取提示詞
func BuildPrompt(in *Input) string {
	caption := truncate(strings.TrimSpace(in.Caption), maxCaptionChars)
	transcript := truncate(strings.TrimSpace(in.Transcript), maxTranscriptChars)

	if caption == "" {
		caption = "（無）"
	}
	if transcript == "" {
		transcript = "（無，請依影片內容萃取）"
	}
	return fmt.Sprintf(recipePromptTemplate, in.Platform, caption, transcript)
}

// truncate 以 rune 為單位截斷，避免切壞多位元組字元
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
