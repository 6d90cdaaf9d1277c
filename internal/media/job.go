package media

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryVideo   Category = "video"
	CategorySocial  Category = "social"
	CategoryMusic   Category = "music"
	CategoryGeneric Category = "generic"
)

// Estimable reports whether a cheap size estimate is worth asking for.
func (c Category) Estimable() bool {
	return c == CategoryVideo || c == CategoryGeneric
}

type ChatContext int

const (
	ChatPrivate ChatContext = iota
	ChatGroup
)

func (c ChatContext) String() string {
	if c == ChatGroup {
		return "group"
	}
	return "private"
}

// Job is one retrieval request. It is never mutated after NewJob; WithHint
// returns a copy.
type Job struct {
	ID          string
	URL         string
	Category    Category
	Platform    string
	Hint        string
	Chat        ChatContext
	SubmittedAt time.Time
}

func NewJob(rawURL string, chat ChatContext) Job {
	url := NormalizeURL(rawURL)
	category, platform := Classify(url)
	return Job{
		ID:          uuid.NewString(),
		URL:         url,
		Category:    category,
		Platform:    platform,
		Chat:        chat,
		SubmittedAt: time.Now(),
	}
}

func (j Job) WithHint(hint string) Job {
	j.Hint = hint
	return j
}

// WorkName is the collision-free stem every working file of the job starts
// with, e.g. "video_3f1c...".
func (j Job) WorkName() string {
	return string(j.Category) + "_" + strings.ReplaceAll(j.ID, "-", "")
}

type StrategyResult struct {
	FilePath  string
	Strategy  string
	SizeBytes int64
	Title     string
	MimeType  string
}
