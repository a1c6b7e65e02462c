package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studx/messaging"
)

const (
	DefaultConversationInterval = 5 * time.Second
	DefaultMessageInterval      = 3 * time.Second
)

// API is the subset of Client the poller needs.
type API interface {
	ListConversations(ctx context.Context) ([]messaging.ConversationSummary, error)
	ListMessages(ctx context.Context, conversationID string) ([]messaging.MessageView, error)
	SendMessage(ctx context.Context, conversationID, text string) (*messaging.MessageView, error)
}

type PollerOptions struct {
	ConversationInterval time.Duration
	MessageInterval      time.Duration
	Logger               zerolog.Logger

	// Called after every successful fetch, from the polling goroutine.
	OnConversations func([]messaging.ConversationSummary)
	OnMessages      func(conversationID string, msgs []messaging.MessageView)
}

// Poller refreshes the conversation list on a fixed interval and, while a
// conversation is open, its messages on a shorter one. Failed background
// refreshes keep the last good data.
type Poller struct {
	api  API
	opts PollerOptions
	log  zerolog.Logger

	mu            sync.Mutex
	conversations []messaging.ConversationSummary
	messages      []messaging.MessageView
	active        string
	stopMessages  context.CancelFunc
	messagesDone  chan struct{}
}

func NewPoller(api API, opts PollerOptions) *Poller {
	if opts.ConversationInterval <= 0 {
		opts.ConversationInterval = DefaultConversationInterval
	}
	if opts.MessageInterval <= 0 {
		opts.MessageInterval = DefaultMessageInterval
	}
	return &Poller{
		api:  api,
		opts: opts,
		log:  opts.Logger.With().Str("component", "poller").Logger(),
	}
}

// Run fetches the conversation list once in the foreground, returning any
// error, then refreshes it in the background until ctx is done. Any open
// conversation is closed on return.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.refreshConversations(ctx, true); err != nil {
		return err
	}
	defer p.Close()

	ticker := time.NewTicker(p.opts.ConversationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = p.refreshConversations(ctx, false)
		}
	}
}

// Open switches to conversationID, stopping the previous message loop. The
// foreground fetch error, if any, is returned; the loop keeps polling either
// way until Close, another Open, or ctx cancellation.
func (p *Poller) Open(ctx context.Context, conversationID string) error {
	p.Close()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.active = conversationID
	p.messages = nil
	p.stopMessages = cancel
	p.messagesDone = done
	p.mu.Unlock()

	err := p.refreshMessages(loopCtx, conversationID, true)

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.opts.MessageInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_ = p.refreshMessages(loopCtx, conversationID, false)
			}
		}
	}()

	return err
}

// Close stops the message loop, if any, and waits for it to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	cancel, done := p.stopMessages, p.messagesDone
	p.stopMessages, p.messagesDone = nil, nil
	p.active = ""
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Send posts text to the open conversation and refreshes both views.
func (p *Poller) Send(ctx context.Context, text string) (*messaging.MessageView, error) {
	id := p.Active()
	if id == "" {
		return nil, ErrNoConversation
	}
	msg, err := p.api.SendMessage(ctx, id, text)
	if err != nil {
		return nil, err
	}
	_ = p.refreshMessages(ctx, id, false)
	_ = p.refreshConversations(ctx, false)
	return msg, nil
}

func (p *Poller) Active() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Conversations returns the last successfully fetched list.
func (p *Poller) Conversations() []messaging.ConversationSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.ConversationSummary(nil), p.conversations...)
}

// Messages returns the last successfully fetched log of the open conversation.
func (p *Poller) Messages() []messaging.MessageView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.MessageView(nil), p.messages...)
}

func (p *Poller) refreshConversations(ctx context.Context, foreground bool) error {
	convs, err := p.api.ListConversations(ctx)
	if err != nil {
		if !foreground {
			p.log.Debug().Err(err).Msg("background conversation refresh failed")
		}
		return err
	}

	p.mu.Lock()
	p.conversations = convs
	p.mu.Unlock()

	if p.opts.OnConversations != nil {
		p.opts.OnConversations(convs)
	}
	return nil
}

func (p *Poller) refreshMessages(ctx context.Context, conversationID string, foreground bool) error {
	msgs, err := p.api.ListMessages(ctx, conversationID)
	if err != nil {
		if !foreground {
			p.log.Debug().Err(err).Str("conversation_id", conversationID).Msg("background message refresh failed")
		}
		return err
	}

	p.mu.Lock()
	if p.active != conversationID {
		// a late response for a conversation that is no longer open
		p.mu.Unlock()
		return nil
	}
	p.messages = msgs
	p.mu.Unlock()

	if p.opts.OnMessages != nil {
		p.opts.OnMessages(conversationID, msgs)
	}
	return nil
}
