package messaging

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

// CaptionInfo describes a delivered file for its caption.
type CaptionInfo struct {
	Title     string
	Source    string
	SourceURL string
	SizeBytes int64
	Elapsed   time.Duration
	UserName  string
}

func BuildCaption(info CaptionInfo) string {
	sizeMB := float64(info.SizeBytes) / 1024 / 1024

	displayTitle := truncate(html.UnescapeString(info.Title), 100)

	text := fmt.Sprintf("<b>%s</b>\n"+
		"🔗 Source : <a href=\"%s\">%s</a>\n"+
		"💾 Size : <code>%.2f MB</code>\n"+
		"⏱️ Processing Time : <code>%s</code>",
		html.EscapeString(displayTitle),
		info.SourceURL,
		html.EscapeString(info.Source),
		sizeMB,
		info.Elapsed.Round(time.Second),
	)
	if info.UserName != "" {
		text += "\n👤 By : " + html.EscapeString(info.UserName)
	}
	return text
}

var captionTag = regexp.MustCompile(`(?s)<(b|code|a)(?: href="([^"]+)")?>([^<]+)</(?:b|code|a)>`)

func ParseCaptionEntities(text string) (string, []tg.MessageEntityClass) {
	var cleanText strings.Builder
	var entities []tg.MessageEntityClass

	matches := captionTag.FindAllStringSubmatchIndex(text, -1)

	lastIdx := 0
	for _, m := range matches {
		cleanText.WriteString(html.UnescapeString(text[lastIdx:m[0]]))

		offset := len(utf16.Encode([]rune(cleanText.String())))
		tagEnd := m[1]

		tagName := text[m[2]:m[3]]
		href := ""
		if m[4] != -1 {
			href = text[m[4]:m[5]]
		}
		content := html.UnescapeString(text[m[6]:m[7]])

		cleanText.WriteString(content)
		length := len(utf16.Encode([]rune(content)))

		var ent tg.MessageEntityClass
		switch tagName {
		case "b":
			ent = &tg.MessageEntityBold{Offset: offset, Length: length}
		case "code":
			ent = &tg.MessageEntityCode{Offset: offset, Length: length}
		case "a":
			ent = &tg.MessageEntityTextURL{Offset: offset, Length: length, URL: href}
		}
		if ent != nil {
			entities = append(entities, ent)
		}
		lastIdx = tagEnd
	}
	cleanText.WriteString(html.UnescapeString(text[lastIdx:]))
	return cleanText.String(), entities
}

func GetUserName(e tg.Entities, msg *tg.Message) string {
	var userID int64
	if from, ok := msg.GetFromID(); ok {
		if u, ok := from.(*tg.PeerUser); ok {
			userID = u.UserID
		}
	} else {
		if u, ok := msg.GetPeerID().(*tg.PeerUser); ok {
			userID = u.UserID
		}
	}

	if userID != 0 {
		if user, ok := e.Users[userID]; ok {
			if user.Username != "" {
				return "@" + user.Username
			}
			name := strings.TrimSpace(user.FirstName + " " + user.LastName)
			if name != "" {
				return name
			}
		}
	}
	return "User"
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
