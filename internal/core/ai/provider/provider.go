package provider

import (
	"context"

	"recipe-extractor/internal/pkg/common"
)

// Input 交給 AI 供應商的萃取素材。Key 與 SourceURL 為權威欄位，
// 寫回食譜時會覆蓋模型自己編出的值。
type Input struct {
	Platform      common.Platform
	Key           string
	SourceURL     string
	Caption       string
	Transcript    string
	Author        string
	CreatorHandle string
	Thumbnail     string
}

// Result 一次萃取的結果
type Result struct {
	Recipe    *common.Recipe
	Model     string
	ElapsedMS int64
}

// Normalizer 定義 AI 供應商介面，將影片素材正規化為結構化食譜
type Normalizer interface {
	// Normalize 萃取食譜
	Normalize(ctx context.Context, in *Input) (*Result, error)

	// Name 供應商名稱
	Name() string

	// Model 使用的模型名稱
	Model() string
}
