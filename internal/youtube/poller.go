package youtube

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tubewatch/internal/events"
	"tubewatch/internal/logging"
	"tubewatch/internal/notifications"
	"tubewatch/internal/store"
)

// Lister is the channel listing surface the poller depends on.
type Lister interface {
	FetchChannelVideos(ctx context.Context, channelName string) ([]store.Video, error)
}

// Poller periodically fetches tracked channel listings, records anything
// unseen, and broadcasts a new-videos event for it.
type Poller struct {
	store    *store.Store
	client   Lister
	hub      *events.Hub
	notifier notifications.Service
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds a poller. A non-positive interval disables periodic
// sweeps; the startup sweep still runs.
func NewPoller(st *store.Store, client Lister, hub *events.Hub, notifier notifications.Service, logger *slog.Logger, interval time.Duration) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		store:    st,
		client:   client,
		hub:      hub,
		notifier: notifier,
		logger:   logging.WithComponent(logger, "poller"),
		interval: interval,
	}
}

// Start launches the polling loop. The first sweep runs immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.Sweep(ctx)
		if p.interval <= 0 {
			// Polling disabled; the startup sweep still ran once.
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the polling loop and waits for the in-flight sweep to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep fetches every tracked channel once and broadcasts unseen videos.
func (p *Poller) Sweep(ctx context.Context) {
	channels, err := p.store.ListChannels(ctx)
	if err != nil {
		p.logger.Error("list tracked channels", logging.Error(err))
		return
	}

	for _, channel := range channels {
		if ctx.Err() != nil {
			return
		}
		if err := p.sweepChannel(ctx, channel.Name); err != nil {
			p.logger.Warn("channel sweep failed",
				logging.String("channel", channel.Name),
				logging.Error(err))
		}
	}
}

func (p *Poller) sweepChannel(ctx context.Context, channelName string) error {
	videos, err := p.client.FetchChannelVideos(ctx, channelName)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return nil
	}

	fresh := make([]store.Video, 0, len(videos))
	for _, video := range videos {
		_, err := p.store.GetVideo(ctx, video.ID)
		if errors.Is(err, store.ErrNotFound) {
			fresh = append(fresh, video)
			continue
		}
		if err != nil {
			return err
		}
	}

	// Upsert everything so listing metadata stays current for known videos.
	if err := p.store.UpsertVideos(ctx, videos); err != nil {
		return err
	}
	if len(fresh) == 0 {
		return nil
	}

	p.logger.Info("new videos discovered",
		logging.String("channel", channelName),
		logging.Int("count", len(fresh)))
	p.hub.Publish(events.NewVideosEvent(fresh))
	if p.notifier != nil {
		if err := p.notifier.NotifyNewVideos(ctx, channelName, len(fresh)); err != nil {
			p.logger.Warn("new videos notification failed", logging.Error(err))
		}
	}
	return nil
}
