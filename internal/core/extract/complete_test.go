package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"recipe-extractor/internal/core/job"
	"recipe-extractor/internal/core/scraper"
	"recipe-extractor/internal/pkg/common"
)

func envelopePayload(eventType, status, datasetID string) []byte {
	return []byte(fmt.Sprintf(`{
		"eventType": %q,
		"eventData": {"actorRunId": "run-1"},
		"resource": {"id": "run-1", "actId": "acts~demo", "status": %q, "defaultDatasetId": %q}
	}`, eventType, status, datasetID))
}

func seedPendingTikTok(t *testing.T, store job.Store) {
	t.Helper()
	_, err := store.Upsert(context.Background(), tiktokKey, job.Patch{
		Status: job.StatusPending,
		Meta: job.Meta{
			SourceURL: tiktokURL,
			Platform:  common.PlatformTikTok,
			Caption:   thinCaption,
			RunID:     "run-1",
			DatasetID: "ds-1",
			Attempts:  1,
		},
	})
	if err != nil {
		t.Fatalf("預置任務失敗: %v", err)
	}
}

func TestCompleteWebhookSucceeded(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.scraper.items = []scraper.Item{{
		"id":          "7234567890123456789",
		"text":        "velvet beef noodle at home",
		"voiceToText": "先把牛腱汆燙，接著下蔥薑爆香",
		"webVideoUrl": tiktokURL,
		"authorMeta":  map[string]interface{}{"name": "cook", "nickName": "阿嬤的廚房"},
	}}

	jb, err := f.svc.Complete(context.Background(), tiktokKey,
		envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1"))
	if err != nil {
		t.Fatalf("Complete 失敗: %v", err)
	}
	if jb.Status != job.StatusReady {
		t.Fatalf("狀態 = %s, want READY", jb.Status)
	}
	if jb.Value == nil || jb.Value.Title != "紅燒牛肉麵" {
		t.Errorf("食譜結果不正確: %+v", jb.Value)
	}
	if f.scraper.fetches != 1 || f.scraper.gotDataset != "ds-1" {
		t.Errorf("資料集讀取不正確: fetches=%d dataset=%s", f.scraper.fetches, f.scraper.gotDataset)
	}
	if f.ai.gotIn == nil || f.ai.gotIn.Transcript != "先把牛腱汆燙，接著下蔥薑爆香" {
		t.Errorf("AI 輸入缺少逐字稿: %+v", f.ai.gotIn)
	}
	if f.ai.gotIn.Caption != "velvet beef noodle at home" {
		t.Errorf("AI 輸入說明 = %q", f.ai.gotIn.Caption)
	}
	if jb.Meta.Provider != "openai" || jb.Meta.RunID != "run-1" {
		t.Errorf("完成後中繼資料不正確: %+v", jb.Meta)
	}
	if jb.Meta.Author != "阿嬤的廚房" || jb.Meta.CreatorHandle != "@cook" {
		t.Errorf("作者資訊未合併: %+v", jb.Meta)
	}
}

func TestCompleteInlinePayload(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)

	payload := []byte(`{
		"key": "tiktok:7234567890123456789",
		"caption": "三杯雞食譜",
		"transcript": "雞腿切塊，麻油薑片煸香後下鍋"
	}`)
	jb, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if err != nil {
		t.Fatalf("Complete 失敗: %v", err)
	}
	if jb.Status != job.StatusReady {
		t.Fatalf("狀態 = %s, want READY", jb.Status)
	}
	if f.scraper.fetches != 0 {
		t.Errorf("內嵌載荷不應讀資料集, fetches = %d", f.scraper.fetches)
	}
	if f.ai.gotIn.Transcript != "雞腿切塊，麻油薑片煸香後下鍋" {
		t.Errorf("AI 輸入缺少逐字稿: %+v", f.ai.gotIn)
	}
}

func TestCompleteDuplicateDelivery(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.scraper.items = []scraper.Item{{
		"caption":     "beef noodle recipe",
		"voiceToText": "step one",
	}}
	payload := envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1")

	first, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if err != nil || first.Status != job.StatusReady {
		t.Fatalf("第一次回呼應完成任務: %+v, err=%v", first, err)
	}

	second, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if err != nil {
		t.Fatalf("重複回呼不應報錯: %v", err)
	}
	if second.Status != job.StatusReady {
		t.Errorf("狀態 = %s, want READY", second.Status)
	}
	if f.ai.calls != 1 {
		t.Errorf("重複回呼不應再叫 AI, calls = %d", f.ai.calls)
	}
	if f.scraper.fetches != 1 {
		t.Errorf("重複回呼不應再讀資料集, fetches = %d", f.scraper.fetches)
	}
}

func TestCompleteLateAfterFastPath(t *testing.T) {
	f := newServiceFixture(t)
	if _, err := f.store.Upsert(context.Background(), tiktokKey, job.Patch{
		Status: job.StatusReady,
		Value:  recipeFixture("快路徑先完成"),
	}); err != nil {
		t.Fatalf("預置任務失敗: %v", err)
	}

	jb, err := f.svc.Complete(context.Background(), tiktokKey,
		envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1"))
	if err != nil {
		t.Fatalf("Complete 失敗: %v", err)
	}
	if jb.Status != job.StatusReady || jb.Value.Title != "快路徑先完成" {
		t.Errorf("晚到回呼不應改寫已完成任務: %+v", jb)
	}
	if f.ai.calls != 0 || f.scraper.fetches != 0 {
		t.Errorf("晚到回呼不應觸發任何外部服務")
	}
}

func TestCompleteRunFailureEvents(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		status    string
	}{
		{name: "執行失敗", eventType: "ACTOR.RUN.FAILED", status: "FAILED"},
		{name: "執行逾時", eventType: "ACTOR.RUN.TIMED_OUT", status: "TIMED-OUT"},
		{name: "執行中止", eventType: "ACTOR.RUN.ABORTED", status: "ABORTED"},
		{name: "事件缺漏但狀態失敗", eventType: "ACTOR.RUN.SUCCEEDED", status: "TIMED-OUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			seedPendingTikTok(t, f.store)

			jb, err := f.svc.Complete(context.Background(), tiktokKey,
				envelopePayload(tt.eventType, tt.status, "ds-1"))
			if err != nil {
				t.Fatalf("失敗事件應正常收下: %v", err)
			}
			if jb.Status != job.StatusFailed {
				t.Fatalf("狀態 = %s, want FAILED", jb.Status)
			}
			if jb.Error == nil || jb.Error.Type != common.ErrCodeNoContent {
				t.Errorf("錯誤明細不正確: %+v", jb.Error)
			}
			if !strings.Contains(jb.Error.Message, tt.status) {
				t.Errorf("錯誤訊息應帶出狀態: %q", jb.Error.Message)
			}
			if f.scraper.fetches != 0 {
				t.Errorf("失敗事件不應讀資料集")
			}
		})
	}
}

func TestCompleteNoUsableText(t *testing.T) {
	tests := []struct {
		name  string
		items []scraper.Item
	}{
		{name: "資料集為空", items: nil},
		{name: "項目沒有文字", items: []scraper.Item{{"id": "7234567890123456789"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			seedPendingTikTok(t, f.store)
			f.scraper.items = tt.items

			jb, err := f.svc.Complete(context.Background(), tiktokKey,
				envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1"))
			if err != nil {
				t.Fatalf("Complete 失敗: %v", err)
			}
			if jb.Status != job.StatusFailed {
				t.Fatalf("狀態 = %s, want FAILED", jb.Status)
			}
			if jb.Error == nil || jb.Error.Type != common.ErrCodeNoContent {
				t.Errorf("錯誤明細不正確: %+v", jb.Error)
			}
			if f.ai.calls != 0 {
				t.Errorf("沒有素材不應叫 AI")
			}
		})
	}
}

func TestCompleteInvalidKeys(t *testing.T) {
	keys := []string{"garbage", "vimeo:123", ":123", "tiktok:"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			f := newServiceFixture(t)
			_, err := f.svc.Complete(context.Background(), key, []byte(`{"caption": "x"}`))
			if !common.IsErrorCode(err, common.ErrCodeInvalidPayload) {
				t.Errorf("錯誤代碼 = %s, want INVALID_PAYLOAD", common.ErrorCode(err))
			}
		})
	}
}

func TestCompleteInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "不是 JSON", payload: []byte("not json at all")},
		{name: "空載荷", payload: nil},
		{name: "成功事件缺資料集", payload: envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			seedPendingTikTok(t, f.store)

			_, err := f.svc.Complete(context.Background(), tiktokKey, tt.payload)
			if !common.IsErrorCode(err, common.ErrCodeInvalidPayload) {
				t.Errorf("錯誤代碼 = %s, want INVALID_PAYLOAD", common.ErrorCode(err))
			}

			stored, _ := f.store.Get(context.Background(), tiktokKey)
			if stored == nil || stored.Status != job.StatusPending {
				t.Errorf("無效載荷不應改變任務狀態: %+v", stored)
			}
		})
	}
}

func TestCompleteInlineKeyMismatch(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)

	payload := []byte(`{"key": "tiktok:111", "caption": "stolen recipe", "transcript": "whatever"}`)
	_, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if !common.IsErrorCode(err, common.ErrCodeInvalidPayload) {
		t.Fatalf("錯誤代碼 = %s, want INVALID_PAYLOAD", common.ErrorCode(err))
	}

	stored, _ := f.store.Get(context.Background(), tiktokKey)
	if stored == nil || stored.Status != job.StatusPending {
		t.Errorf("鍵不符不應改變任務狀態: %+v", stored)
	}
}

func TestCompleteNormalizationFailure(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.ai.err = common.WrapError(common.ErrNormalizationFailed, errors.New("model returned prose"))

	payload := []byte(`{"caption": "beef noodle recipe", "transcript": "step one"}`)
	jb, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if err != nil {
		t.Fatalf("正規化失敗應收下回呼: %v", err)
	}
	if jb.Status != job.StatusFailed {
		t.Fatalf("狀態 = %s, want FAILED", jb.Status)
	}
	if jb.Error == nil || jb.Error.Type != common.ErrCodeNormalizationFailed {
		t.Errorf("錯誤明細不正確: %+v", jb.Error)
	}
	// 先合併的爬蟲素材要留著，重送時才不用重爬
	if jb.Meta.Transcript != "step one" {
		t.Errorf("逐字稿未保留: %+v", jb.Meta)
	}
}

func TestCompleteMissingCredential(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.routeErr = common.WrapError(common.ErrMissingCredential, errors.New("openai api key not configured"))

	payload := []byte(`{"caption": "beef noodle recipe", "transcript": "step one"}`)
	jb, err := f.svc.Complete(context.Background(), tiktokKey, payload)
	if err != nil {
		t.Fatalf("缺金鑰應落成 FAILED 而不是報錯: %v", err)
	}
	if jb.Status != job.StatusFailed {
		t.Fatalf("狀態 = %s, want FAILED", jb.Status)
	}
	if jb.Error == nil || jb.Error.Type != common.ErrCodeMissingCredential {
		t.Errorf("錯誤明細不正確: %+v", jb.Error)
	}
}

func TestCompleteDatasetFetchError(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.scraper.fetchErr = errors.New("dataset fetch returned 500")

	_, err := f.svc.Complete(context.Background(), tiktokKey,
		envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1"))
	if err == nil {
		t.Fatal("資料集讀取失敗應回錯誤讓上游重送")
	}
	if common.ErrorCode(err) != common.ErrCodeInternalError {
		t.Errorf("錯誤代碼 = %s, want INTERNAL_ERROR", common.ErrorCode(err))
	}

	stored, _ := f.store.Get(context.Background(), tiktokKey)
	if stored == nil || stored.Status != job.StatusPending {
		t.Errorf("暫時性失敗不應改變任務狀態: %+v", stored)
	}
}

func TestCompleteWithoutPriorJob(t *testing.T) {
	f := newServiceFixture(t)
	f.ai.name = "gemini"
	f.ai.model = "gemini-2.0-flash"

	// 任務已從快取過期，回呼仍要能從零建出結果
	payload := []byte(`{"transcript": "preheat the oven to 180 degrees"}`)
	jb, err := f.svc.Complete(context.Background(), youtubeKey, payload)
	if err != nil {
		t.Fatalf("Complete 失敗: %v", err)
	}
	if jb.Status != job.StatusReady {
		t.Fatalf("狀態 = %s, want READY", jb.Status)
	}
	if want := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"; f.ai.gotIn.SourceURL != want {
		t.Errorf("來源網址 = %q, want %q", f.ai.gotIn.SourceURL, want)
	}
	if len(f.routed) != 1 || f.routed[0] != common.PlatformYouTube {
		t.Errorf("路由平台 = %v, want [youtube]", f.routed)
	}
}

func TestCompleteVideoIDMismatchStillCompletes(t *testing.T) {
	f := newServiceFixture(t)
	seedPendingTikTok(t, f.store)
	f.scraper.items = []scraper.Item{{
		"id":          "999",
		"caption":     "beef noodle recipe",
		"voiceToText": "step one",
	}}

	jb, err := f.svc.Complete(context.Background(), tiktokKey,
		envelopePayload("ACTOR.RUN.SUCCEEDED", "SUCCEEDED", "ds-1"))
	if err != nil {
		t.Fatalf("Complete 失敗: %v", err)
	}
	if jb.Status != job.StatusReady {
		t.Errorf("編號不符只記警告，任務仍應完成: %s", jb.Status)
	}
}
