package scraper

import (
	"encoding/json"
	"strings"
)

// Item 爬蟲回傳的單筆結果。不同 actor 的欄位名並不一致，
// 存取器依序嘗試常見欄位名，取第一個非空值。
type Item map[string]interface{}

// Caption 影片說明文字
func (it Item) Caption() string {
	return it.firstString("caption", "text", "desc", "description", "title")
}

// Transcript 語音轉出的逐字稿
func (it Item) Transcript() string {
	return it.firstString("transcript", "voiceToText", "subtitles", "videoTranscript")
}

// VideoID 影片 ID
func (it Item) VideoID() string {
	return it.firstString("id", "videoId", "awemeId")
}

// SourceURL 影片頁面網址
func (it Item) SourceURL() string {
	return it.firstString("webVideoUrl", "url")
}

// Author 作者顯示名稱
func (it Item) Author() string {
	if s := it.firstString("authorName", "channelName"); s != "" {
		return s
	}
	if s := it.nestedString("authorMeta", "nickName"); s != "" {
		return s
	}
	return it.nestedString("author", "nickname")
}

// Handle 作者帳號，統一補上 @ 前綴
func (it Item) Handle() string {
	h := it.firstString("channelUsername", "authorUniqueId")
	if h == "" {
		h = it.nestedString("authorMeta", "name")
	}
	if h == "" {
		h = it.nestedString("author", "uniqueId")
	}
	if h == "" {
		return ""
	}
	if strings.HasPrefix(h, "@") {
		return h
	}
	return "@" + h
}

// Thumbnail 影片封面
func (it Item) Thumbnail() string {
	if s := it.nestedString("videoMeta", "coverUrl"); s != "" {
		return s
	}
	return it.firstString("thumbnailUrl", "coverUrl", "cover")
}

// firstString 依序取第一個非空字串欄位
func (it Item) firstString(keys ...string) string {
	for _, k := range keys {
		if s := stringValue(it[k]); s != "" {
			return s
		}
	}
	return ""
}

// nestedString 取巢狀物件內的字串欄位
func (it Item) nestedString(path ...string) string {
	var cur interface{} = map[string]interface{}(it)
	for _, k := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = m[k]
	}
	return stringValue(cur)
}

// stringValue 數字欄位一律轉成字串，ID 常見兩種型別混用
func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}
