package common

// Platform 影片來源平台
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
)

// Recipe 從影片萃取出的結構化食譜
// 注意：id、source_url、media、author、creator_handle 由正規化流程回填，
// 儲存前不得為空（食譜永遠帶著自己的身分與出處）
type Recipe struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Servings      string       `json:"servings,omitempty"`
	PrepTime      string       `json:"prep_time,omitempty"`
	CookTime      string       `json:"cook_time,omitempty"`
	Ingredients   []Ingredient `json:"ingredients"`
	Steps         []Step       `json:"steps"`
	Tags          []string     `json:"tags,omitempty"`
	SourceURL     string       `json:"source_url"`
	Media         *Media       `json:"media,omitempty"`
	Author        string       `json:"author,omitempty"`
	CreatorHandle string       `json:"creator_handle,omitempty"`
}

// Ingredient 食材
type Ingredient struct {
	Name        string `json:"name"`
	Amount      string `json:"amount,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Preparation string `json:"preparation,omitempty"`
}

// Step 食譜步驟
type Step struct {
	StepNumber  int    `json:"step_number"`
	Description string `json:"description"`
	TimeMinutes int    `json:"time_minutes,omitempty"`
}

// Media 食譜關聯的媒體資源
type Media struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Video     string `json:"video,omitempty"`
}
