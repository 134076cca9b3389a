package broadcast

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Event names delivered to subscribers.
const (
	EventState     = "state"
	EventHost      = "host"
	EventKeepAlive = "keepalive"
)

// Event is one message on a subscriber's outbox. Data is the payload to
// marshal for the wire; it is nil for keep-alives.
type Event struct {
	Name string
	Data any
}

type Msg interface{ isBroadcastMsg() }

type Join struct {
	ID     string
	Outbox chan Event // where this subscriber wants to receive events
}

type Leave struct{ ID string }

type Publish struct{ Event Event }

type GetView struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isBroadcastMsg()     {}
func (Leave) isBroadcastMsg()    {}
func (Publish) isBroadcastMsg()  {}
func (GetView) isBroadcastMsg()  {}
func (Shutdown) isBroadcastMsg() {}

// View reflects internal state without data races. Test-only.
type View struct {
	NumSubscribers int
}

// Broadcaster owns the set of subscriber outboxes and fans every published
// event out to all of them in order. A subscriber whose outbox is full is
// dropped rather than letting it block the rest. A periodic keep-alive
// event defeats idle-connection timeouts in intermediary equipment.
type Broadcaster struct {
	inbox    chan Msg
	subs     map[string]chan Event
	current  func() Event // produces a state event for newly joined subscribers
	interval time.Duration
	clock    clockwork.Clock
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, current func() Event, interval time.Duration, clock clockwork.Clock, log *zap.Logger) *Broadcaster {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	b := &Broadcaster{
		inbox:    make(chan Msg, 64),
		subs:     make(map[string]chan Event),
		current:  current,
		interval: interval,
		clock:    clock,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	go b.loop()
	return b
}

// Inbox exposes the message channel to the gateway and transport layers.
func (b *Broadcaster) Inbox() chan<- Msg { return b.inbox }

func (b *Broadcaster) loop() {
	keepAlive := b.clock.NewTicker(b.interval)
	defer keepAlive.Stop()

	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case <-keepAlive.Chan():
			b.fanOut(Event{Name: EventKeepAlive})

		case m := <-b.inbox:
			switch msg := m.(type) {
			case Join:
				// Register subscriber + send the latest snapshot
				// immediately so it is never stale.
				b.subs[msg.ID] = msg.Outbox
				msg.Outbox <- b.current()

			case Leave:
				if ch, ok := b.subs[msg.ID]; ok {
					close(ch)
					delete(b.subs, msg.ID)
				}

			case Publish:
				b.fanOut(msg.Event)

			case GetView:
				msg.Reply <- View{NumSubscribers: len(b.subs)}

			case Shutdown:
				b.shutdown()
				return
			}
		}
	}
}

func (b *Broadcaster) fanOut(ev Event) {
	for id, ch := range b.subs {
		select {
		case ch <- ev:
			// ok
		default:
			// Subscriber is slow/full - drop it.
			close(ch)
			delete(b.subs, id)
			b.log.Warn("dropped slow subscriber", zap.String("subscriber_id", id))
		}
	}
}

func (b *Broadcaster) shutdown() {
	for id, ch := range b.subs {
		close(ch) // tell subscriber no more events
		delete(b.subs, id)
	}
	b.cancel()
}
