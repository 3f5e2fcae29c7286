package utils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// EnhanceHTML 为已净化的 HTML 中的图片增加加载属性，并把单独成段的 YouTube 链接转换为嵌入播放器
func EnhanceHTML(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.Contains(text, " ") {
			return
		}
		if id := youtubeVideoID(text); id != "" {
			s.ReplaceWithHtml(`<div class="video-container"><iframe src="https://www.youtube.com/embed/` + id + `" frameborder="0" allowfullscreen></iframe></div>`)
		}
	})

	// goquery wraps fragments in html/body, only the body content is wanted
	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return out
}

// youtubeVideoID extracts the id from watch and short links; anything that is
// not a well formed id yields "".
func youtubeVideoID(link string) string {
	var id string
	switch {
	case strings.Contains(link, "youtube.com/watch?v="):
		id = strings.Split(strings.SplitN(link, "v=", 2)[1], "&")[0]
	case strings.Contains(link, "youtu.be/"):
		id = strings.Split(strings.SplitN(link, "youtu.be/", 2)[1], "?")[0]
	}
	if !youtubeID.MatchString(id) {
		return ""
	}
	return id
}
