package slack

import (
	"fmt"
	"time"

	"github.com/custodia-labs/slack-archive/internal/connectors/slack/slackjson"
	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// envelope is implemented by every response body.
type envelope interface {
	status() (ok bool, code string)
}

type baseResponse struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error"`
	Warning  string           `json:"warning"`
	Metadata responseMetadata `json:"response_metadata"`
}

func (r baseResponse) status() (bool, string) {
	return r.OK, r.Error
}

type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

type textValue struct {
	Value string `json:"value"`
}

type conversationJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsChannel  bool      `json:"is_channel"`
	IsGroup    bool      `json:"is_group"`
	IsIM       bool      `json:"is_im"`
	IsMPIM     bool      `json:"is_mpim"`
	IsPrivate  bool      `json:"is_private"`
	IsArchived bool      `json:"is_archived"`
	User       string    `json:"user"`
	Created    int64     `json:"created"`
	Topic      textValue `json:"topic"`
	Purpose    textValue `json:"purpose"`
}

func (c conversationJSON) toDomain() domain.Conversation {
	conv := domain.Conversation{
		ID:       c.ID,
		Name:     c.Name,
		UserID:   c.User,
		Topic:    c.Topic.Value,
		Purpose:  c.Purpose.Value,
		Archived: c.IsArchived,
		Created:  unixTime(c.Created),
	}
	switch {
	case c.IsIM:
		conv.Type = domain.ConversationIM
	case c.IsMPIM:
		conv.Type = domain.ConversationMultiPartyIM
	case c.IsPrivate || c.IsGroup:
		conv.Type = domain.ConversationPrivateChannel
	default:
		conv.Type = domain.ConversationPublicChannel
	}
	return conv
}

type userJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Deleted  bool   `json:"deleted"`
	IsBot    bool   `json:"is_bot"`
	TZ       string `json:"tz"`
	Profile  struct {
		DisplayName string `json:"display_name"`
		RealName    string `json:"real_name"`
	} `json:"profile"`
}

func (u userJSON) toDomain() domain.User {
	realName := u.RealName
	if realName == "" {
		realName = u.Profile.RealName
	}
	return domain.User{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    realName,
		DisplayName: u.Profile.DisplayName,
		Deleted:     u.Deleted,
		IsBot:       u.IsBot,
		TimeZone:    u.TZ,
	}
}

type shareJSON struct {
	TS string `json:"ts"`
}

type fileJSON struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	Mimetype           string   `json:"mimetype"`
	Filetype           string   `json:"filetype"`
	Size               int64    `json:"size"`
	URLPrivateDownload string   `json:"url_private_download"`
	URLPrivate         string   `json:"url_private"`
	User               string   `json:"user"`
	Created            int64    `json:"created"`
	Timestamp          int64    `json:"timestamp"`
	Channels           []string `json:"channels"`
	Groups             []string `json:"groups"`
	IMs                []string `json:"ims"`
	Shares             struct {
		Public  map[string][]shareJSON `json:"public"`
		Private map[string][]shareJSON `json:"private"`
	} `json:"shares"`
}

func (f fileJSON) toDomain() domain.File {
	created := f.Created
	if created == 0 {
		created = f.Timestamp
	}
	downloadURL := f.URLPrivateDownload
	if downloadURL == "" {
		downloadURL = f.URLPrivate
	}

	file := domain.File{
		ID:          f.ID,
		Name:        f.Name,
		Title:       f.Title,
		Mimetype:    f.Mimetype,
		Filetype:    f.Filetype,
		Size:        f.Size,
		DownloadURL: downloadURL,
		UserID:      f.User,
		Created:     unixTime(created),
		Channels:    f.Channels,
		Groups:      f.Groups,
		IMs:         f.IMs,
	}

	for _, shares := range []map[string][]shareJSON{f.Shares.Public, f.Shares.Private} {
		for convID, list := range shares {
			for _, share := range list {
				if file.Shares == nil {
					file.Shares = make(map[string]string)
				}
				if prev, ok := file.Shares[convID]; !ok || domain.CompareTimestamps(share.TS, prev) < 0 {
					file.Shares[convID] = share.TS
				}
			}
		}
	}
	return file
}

type pagingJSON struct {
	Count int `json:"count"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

type conversationsListResponse struct {
	baseResponse
	Channels []conversationJSON `json:"channels"`
}

type usersListResponse struct {
	baseResponse
	Members []userJSON `json:"members"`
}

type filesListResponse struct {
	baseResponse
	Files  []fileJSON `json:"files"`
	Paging pagingJSON `json:"paging"`
}

type fileInfoResponse struct {
	baseResponse
	File fileJSON `json:"file"`
}

type historyResponse struct {
	baseResponse
	Messages slackjson.Messages `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

type authTestResponse struct {
	baseResponse
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// slackTimestamp formats t as a Slack ts for oldest/latest bounds.
func slackTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
