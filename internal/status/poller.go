package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/ellier/internal/chzzk"
	"github.com/ManuGH/ellier/internal/metrics"
)

// HLSMediaID is the playback rendition handed to the fetcher.
const HLSMediaID = "HLS"

var (
	// ErrTransport wraps every API failure (transport, HTTP status, decoding).
	ErrTransport = errors.New("status poll failed")

	// ErrNotAdult means the broadcast is age restricted and the current
	// credentials are not adult verified. It is a skip signal, not a fault.
	ErrNotAdult = errors.New("broadcast is adult only and credentials are not adult verified")
)

// API is the subset of the CHZZK client the poller needs.
type API interface {
	GetLiveStatus(ctx context.Context, channelID string, auth *chzzk.Auth) (*chzzk.LiveStatus, error)
	GetLiveDetail(ctx context.Context, channelID string, auth *chzzk.Auth) (*chzzk.LiveDetail, error)
}

// Result is the outcome of one poll.
type Result struct {
	Snapshot Snapshot
	// Status is the raw polling response, always set on success.
	Status *chzzk.LiveStatus
	// Detail is set only when the channel is open.
	Detail *chzzk.LiveDetail
	// StreamURL is the HLS playlist, empty when not streamable.
	StreamURL string
}

// Live reports whether the poll found a recordable stream.
func (r Result) Live() bool {
	return r.Snapshot.Open && r.StreamURL != ""
}

// Poller queries the API for a channel's current state.
type Poller struct {
	api API
}

// NewPoller returns a poller backed by api.
func NewPoller(api API) *Poller {
	return &Poller{api: api}
}

// Status fetches only the polling endpoint. The supervisor uses it while a
// recording is running, where live-detail is not needed.
func (p *Poller) Status(ctx context.Context, channelID string, auth *chzzk.Auth) (Result, error) {
	ls, err := p.api.GetLiveStatus(ctx, channelID, auth)
	if err != nil {
		metrics.ObserveStatusPoll("error")
		return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	snap := FromLiveStatus(ls)
	metrics.ObserveStatusPoll(pollLabel(snap.Open))
	return Result{Snapshot: snap, Status: ls}, nil
}

// Poll fetches the live status and, when open, the live detail with its
// playback URL.
func (p *Poller) Poll(ctx context.Context, channelID string, auth *chzzk.Auth) (Result, error) {
	res, err := p.Status(ctx, channelID, auth)
	if err != nil || !res.Snapshot.Open {
		return res, err
	}

	ld, err := p.api.GetLiveDetail(ctx, channelID, auth)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	res.Detail = ld

	pb, err := ld.Playback()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if ld.Adult && pb == nil {
		return res, ErrNotAdult
	}
	if media, ok := pb.Find(HLSMediaID); ok {
		res.StreamURL = media.Path
	}
	return res, nil
}

func pollLabel(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
