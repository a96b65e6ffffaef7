package chzzk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// LiveStatusType is the open/closed state reported by the API.
type LiveStatusType string

const (
	StatusOpen  LiveStatusType = "OPEN"
	StatusClose LiveStatusType = "CLOSE"
)

// Auth is the NAVER login cookie bundle. The JSON form is what the
// credential broker serves.
type Auth struct {
	NIDAut string `json:"nid_aut"`
	NIDSes string `json:"nid_ses"`
	NIDJkl string `json:"nid_jkl"`
}

// Empty reports whether no cookie is set.
func (a *Auth) Empty() bool {
	return a == nil || (a.NIDAut == "" && a.NIDSes == "" && a.NIDJkl == "")
}

// Cookies returns the non-empty cookies for a request.
func (a *Auth) Cookies() []*http.Cookie {
	if a == nil {
		return nil
	}
	var out []*http.Cookie
	for _, c := range []struct{ name, value string }{
		{"NID_AUT", a.NIDAut},
		{"NID_SES", a.NIDSes},
		{"NID_JKL", a.NIDJkl},
	} {
		if c.value != "" {
			out = append(out, &http.Cookie{Name: c.name, Value: c.value})
		}
	}
	return out
}

// CookiePairs renders the cookies as NAME=VALUE pairs, the form streamlink
// accepts through --http-cookie.
func (a *Auth) CookiePairs() []string {
	var out []string
	for _, c := range a.Cookies() {
		out = append(out, c.Name+"="+c.Value)
	}
	return out
}

type envelope struct {
	Code    int             `json:"code"`
	Message *string         `json:"message"`
	Content json.RawMessage `json:"content"`
}

// LiveStatus is the polling payload of a channel.
type LiveStatus struct {
	LiveTitle              string         `json:"liveTitle"`
	Status                 LiveStatusType `json:"status"`
	ConcurrentUserCount    int            `json:"concurrentUserCount"`
	AccumulateCount        int            `json:"accumulateCount"`
	PaidPromotion          bool           `json:"paidPromotion"`
	Adult                  bool           `json:"adult"`
	ChatChannelID          *string        `json:"chatChannelId"`
	CategoryType           *string        `json:"categoryType"`
	LiveCategory           *string        `json:"liveCategory"`
	LiveCategoryValue      string         `json:"liveCategoryValue"`
	ChatActive             bool           `json:"chatActive"`
	ChatAvailableGroup     string         `json:"chatAvailableGroup"`
	ChatAvailableCondition string         `json:"chatAvailableCondition"`

	// Raw is the undecoded content object, kept for sidecar files.
	Raw json.RawMessage `json:"-"`
}

// LiveDetail is the full description of an open (or last) broadcast.
type LiveDetail struct {
	LiveID              int64          `json:"liveId"`
	LiveTitle           string         `json:"liveTitle"`
	Status              LiveStatusType `json:"status"`
	LiveImageURL        *string        `json:"liveImageUrl"`
	ConcurrentUserCount int            `json:"concurrentUserCount"`
	AccumulateCount     int            `json:"accumulateCount"`
	OpenDate            *string        `json:"openDate"`
	CloseDate           *string        `json:"closeDate"`
	Adult               bool           `json:"adult"`
	ChatChannelID       *string        `json:"chatChannelId"`
	CategoryType        *string        `json:"categoryType"`
	LiveCategory        *string        `json:"liveCategory"`
	LiveCategoryValue   string         `json:"liveCategoryValue"`
	LivePlaybackJSON    *string        `json:"livePlaybackJson"`
	Channel             ChannelInfo    `json:"channel"`

	Raw json.RawMessage `json:"-"`
}

// ChannelInfo is the channel block embedded in LiveDetail.
type ChannelInfo struct {
	ChannelID       string  `json:"channelId"`
	ChannelName     string  `json:"channelName"`
	ChannelImageURL *string `json:"channelImageUrl"`
	VerifiedMark    bool    `json:"verifiedMark"`
}

// Playback is the decoded livePlaybackJson document.
type Playback struct {
	Media []Media `json:"media"`
}

// Media is one playback rendition.
type Media struct {
	MediaID  string `json:"mediaId"`
	Protocol string `json:"protocol"`
	Path     string `json:"path"`
}

// Playback decodes the embedded playback document. It returns nil without
// error when the detail carries none, which is what the API does for adult
// broadcasts requested without an adult-verified session.
func (d *LiveDetail) Playback() (*Playback, error) {
	if d == nil || d.LivePlaybackJSON == nil || *d.LivePlaybackJSON == "" {
		return nil, nil
	}
	var pb Playback
	if err := json.Unmarshal([]byte(*d.LivePlaybackJSON), &pb); err != nil {
		return nil, fmt.Errorf("decode livePlaybackJson: %w", err)
	}
	return &pb, nil
}

// Find returns the first media entry with the given ID.
func (p *Playback) Find(mediaID string) (Media, bool) {
	if p == nil {
		return Media{}, false
	}
	for _, m := range p.Media {
		if m.MediaID == mediaID {
			return m, true
		}
	}
	return Media{}, false
}
