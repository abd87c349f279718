package video

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"recipe-extractor/internal/pkg/common"
)

// Identity 影片身份，短連結在中繼資料查詢前可能還沒有 ID
type Identity struct {
	Platform common.Platform
	ID       string
	URL      string
}

// Key 任務鍵，格式為 platform:id，ID 未定時回傳空字串
func (i Identity) Key() string {
	if i.ID == "" {
		return ""
	}
	return string(i.Platform) + ":" + i.ID
}

var (
	tiktokVideoPattern = regexp.MustCompile(`/video/(\d+)`)
	youtubeIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
)

// Resolve 解析影片網址，判斷平台並儘可能取出影片 ID
func Resolve(raw string) (Identity, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Identity{}, common.WrapError(common.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Identity{}, common.WrapError(common.ErrInvalidURL, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		ident := Identity{Platform: common.PlatformTikTok, URL: u.String()}
		// vm./vt. 短連結路徑上沒有 ID，留待 oEmbed 補齊
		if m := tiktokVideoPattern.FindStringSubmatch(u.Path); m != nil {
			ident.ID = m[1]
		}
		return ident, nil

	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		id := youtubeIDFromPath(u)
		if id == "" {
			return Identity{}, common.WrapError(common.ErrInvalidURL, fmt.Errorf("no video id in %q", raw))
		}
		return Identity{Platform: common.PlatformYouTube, ID: id, URL: u.String()}, nil

	case host == "youtu.be":
		id := strings.Trim(u.Path, "/")
		if !youtubeIDPattern.MatchString(id) {
			return Identity{}, common.WrapError(common.ErrInvalidURL, fmt.Errorf("no video id in %q", raw))
		}
		return Identity{Platform: common.PlatformYouTube, ID: id, URL: u.String()}, nil
	}

	return Identity{}, common.WrapError(common.ErrInvalidURL, fmt.Errorf("unsupported host %q", host))
}

// youtubeIDFromPath 從 /watch、/shorts、/embed、/live 路徑取出影片 ID
func youtubeIDFromPath(u *url.URL) string {
	if strings.HasPrefix(u.Path, "/watch") {
		if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
			return id
		}
		return ""
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 2 {
		switch segs[0] {
		case "shorts", "embed", "live":
			if youtubeIDPattern.MatchString(segs[1]) {
				return segs[1]
			}
		}
	}
	return ""
}
