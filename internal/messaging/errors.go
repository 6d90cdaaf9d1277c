package messaging

import (
	"fmt"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/pavelc4/mediaq-bot/internal/sizegate"
)

// Failure texts are a presentation lookup keyed by (kind, category). They
// never feed back into control flow.
var privateTexts = map[media.Kind]map[media.Category]string{
	media.KindAccessDenied: {
		media.CategoryVideo:   "🔒 This video is private or requires sign-in.",
		media.CategorySocial:  "🔒 This post is private or requires login.",
		media.CategoryMusic:   "🔒 This track is not available in the bot's region.",
		media.CategoryGeneric: "🔒 Access to this content was denied.",
	},
	media.KindNotFound: {
		media.CategoryVideo:   "🔍 Video not found. It may have been removed.",
		media.CategorySocial:  "🔍 Post not found. Check the link and try again.",
		media.CategoryMusic:   "🔍 Track not found. Check the link and try again.",
		media.CategoryGeneric: "🔍 Nothing downloadable was found at this link.",
	},
	media.KindUnavailable: {
		media.CategoryVideo:   "🚫 No download method is available for this video right now.",
		media.CategorySocial:  "🚫 This platform is not supported right now.",
		media.CategoryMusic:   "🚫 Music downloads are not available right now.",
		media.CategoryGeneric: "🚫 This link is not supported.",
	},
}

var genericTexts = map[media.Kind]string{
	media.KindTimeout:      "⌛ The download took too long and was cancelled.",
	media.KindAccessDenied: "🔒 The content is private or restricted.",
	media.KindNotFound:     "🔍 The content could not be found.",
	media.KindRateLimited:  "⏳ The source is rate-limiting requests. Try again in a few minutes.",
	media.KindUnavailable:  "🚫 This link cannot be downloaded right now.",
	media.KindUnknown:      "❌ Download failed. Please try again later.",
}

// FailureText returns the user-facing text for a retrieval failure. Private
// chats get a category-aware message, groups the generic one.
func FailureText(kind media.Kind, category media.Category, chat media.ChatContext) string {
	if chat == media.ChatPrivate {
		if byCategory, ok := privateTexts[kind]; ok {
			if text, ok := byCategory[category]; ok {
				return text
			}
		}
	}
	if text, ok := genericTexts[kind]; ok {
		return text
	}
	return genericTexts[media.KindUnknown]
}

func TimeoutText() string {
	return genericTexts[media.KindTimeout]
}

func QueueFullText(maxQueue int) string {
	return fmt.Sprintf("🚦 The queue is full (%d waiting). Please try again later.", maxQueue)
}

func SizeText(err *sizegate.SizeExceededError) string {
	what := "File size"
	if err.Estimated {
		what = "Estimated size"
	}
	return fmt.Sprintf("📦 File too large.\n%s: <code>%.2f MB</code>\nLimit: <code>%.2f MB</code>",
		what, sizegate.ToMB(err.SizeBytes), sizegate.ToMB(err.LimitBytes))
}

func DeliveryFailedText() string {
	return "❌ Upload failed. Please try again later."
}
