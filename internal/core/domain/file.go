package domain

import (
	"sort"
	"time"
)

// File is an uploaded file and the conversations it was shared in.
type File struct {
	ID       string
	Name     string
	Title    string
	Mimetype string
	Filetype string

	// Size is the file size in bytes as reported by the API.
	Size int64

	// DownloadURL requires the API token to fetch.
	DownloadURL string

	// UserID is the uploader.
	UserID  string
	Created time.Time

	// Channels, Groups and IMs list where the file is visible.
	Channels []string
	Groups   []string
	IMs      []string

	// Shares maps a conversation ID to the earliest message timestamp
	// the file was shared with. Only populated by files.info.
	Shares map[string]string
}

// UploadLocation infers the conversation the file was originally uploaded to.
// The earliest share wins; without share details the first listed channel,
// group or IM is used. Returns "" when the location cannot be inferred.
func (f *File) UploadLocation() string {
	var (
		best   string
		bestTS string
	)
	for convo, ts := range f.Shares {
		if best == "" || CompareTimestamps(ts, bestTS) < 0 ||
			(CompareTimestamps(ts, bestTS) == 0 && convo < best) {
			best, bestTS = convo, ts
		}
	}
	if best != "" {
		return best
	}

	for _, list := range [][]string{f.Channels, f.Groups, f.IMs} {
		if len(list) > 0 {
			return list[0]
		}
	}
	return ""
}

// AmbiguousLocation reports whether the file is visible in more than one
// conversation without share details to tell which came first.
func (f *File) AmbiguousLocation() bool {
	return len(f.Shares) == 0 && len(f.Channels)+len(f.Groups)+len(f.IMs) > 1
}

// GroupFilesByConversation builds the conversation ID → files view from a
// fully retrieved file collection. Files with no inferable location are
// grouped under the empty key. Each group is sorted by creation time.
// The result is rebuilt from scratch on every call.
func GroupFilesByConversation(files map[string]File) map[string][]File {
	grouped := make(map[string][]File)
	for _, f := range files {
		loc := f.UploadLocation()
		grouped[loc] = append(grouped[loc], f)
	}

	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Created.Equal(group[j].Created) {
				return group[i].ID < group[j].ID
			}
			return group[i].Created.Before(group[j].Created)
		})
	}
	return grouped
}

// FileQuery restricts a file listing.
type FileQuery struct {
	// From and To bound the upload time. Zero values are open bounds.
	From time.Time
	To   time.Time

	// ConversationID restricts to files shared in one conversation.
	ConversationID string

	// UserID restricts to files uploaded by one user.
	UserID string
}
