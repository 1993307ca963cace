// Package engine drives the poll loop and the per-subscriber delivery
// state machine.
package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vacancywatch/internal/audit"
	"vacancywatch/internal/subscriber"
	kit "vacancywatch/internal/transport"
	logx "vacancywatch/pkg/logx"
)

// ErrNothingToRepost is returned by Repost when no status message has ever
// been sent to the subscriber.
var ErrNothingToRepost = errors.New("no status message to repost")

// Probe is the upstream check for whether the tracked posting is visible.
type Probe interface {
	Check(ctx context.Context) (found bool, err error)
}

type Options struct {
	Probe    Probe
	Store    *subscriber.Store
	Send     kit.Adapter
	Audit    audit.Log // optional; nil disables auditing
	Log      logx.Logger
	Interval time.Duration
}

// Engine runs one probe per tick and fans the result out to active
// subscribers: a "found" result is always a fresh send, a "not found" result
// edits the existing status message in place (or sends and remembers one).
type Engine struct {
	probe Probe
	store *subscriber.Store
	send  kit.Adapter
	audit audit.Log
	log   logx.Logger

	// firstFoundAt is captured once per process run, the first time the probe
	// reports the posting. It is deliberately not persisted: a restart after
	// "found" re-arms it.
	firstFoundAt time.Time

	now func() time.Time // test hook

	runMu   sync.Mutex
	c       *cron.Cron
	entryID cron.EntryID
	every   time.Duration
}

func New(opt Options) *Engine {
	log := opt.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	every := opt.Interval
	if every <= 0 {
		every = 60 * time.Second
	}
	return &Engine{
		probe: opt.Probe,
		store: opt.Store,
		send:  opt.Send,
		audit: opt.Audit,
		log:   log,
		now:   time.Now,
		every: every,
	}
}

// Run starts the fixed-interval poll loop and blocks until ctx is done.
// Ticks never overlap: a slow fan-out causes the next tick to be skipped
// rather than queued.
func (e *Engine) Run(ctx context.Context) {
	e.runMu.Lock()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	e.c = c
	e.entryID = c.Schedule(cron.Every(e.every), cron.FuncJob(func() { e.Tick(ctx) }))
	e.runMu.Unlock()

	e.log.Info("poll loop started", logx.Duration("interval", e.every))
	c.Start()
	<-ctx.Done()

	stop := c.Stop()
	// Let an in-flight fan-out finish its per-subscriber calls.
	<-stop.Done()
	e.log.Info("poll loop stopped")
}

// Reschedule swaps the poll interval without restarting the loop.
// No-op when the interval is unchanged or the loop is not running.
func (e *Engine) Reschedule(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.c == nil || every == e.every {
		return
	}
	e.c.Remove(e.entryID)
	e.every = every
	e.entryID = e.c.Schedule(cron.Every(every), cron.FuncJob(func() { e.Tick(ctx) }))
	e.log.Info("poll interval changed", logx.Duration("interval", every))
}

// Tick runs one probe-and-fan-out cycle. A probe failure skips the whole
// cycle; the next tick retries unconditionally (no backoff).
func (e *Engine) Tick(ctx context.Context) {
	found, err := e.probe.Check(ctx)
	if err != nil {
		e.log.Warn("probe failed; skipping cycle", logx.Err(err))
		return
	}

	text := e.compose(found)
	e.fanOut(ctx, found, text)
}

func (e *Engine) fanOut(ctx context.Context, found bool, text string) {
	for id, sub := range e.store.Snapshot() {
		if !sub.Active {
			continue
		}
		if sub.ChatID == 0 {
			e.log.Warn("subscriber has no chat id; skipping", logx.String("subscriber", id))
			continue
		}
		// One subscriber's transport failure never aborts the rest.
		e.deliver(ctx, id, sub, found, text)
	}
}

func (e *Engine) deliver(ctx context.Context, id string, sub subscriber.Subscriber, found bool, text string) {
	to := kit.ChatTarget{ChatID: sub.ChatID}

	switch {
	case found:
		// Terminal message: always a fresh send, never an edit, and the
		// handle is intentionally not persisted (deactivation is the
		// expected next user action).
		ref, err := e.send.SendText(ctx, to, text, nil)
		e.record(id, sub, "send", ref.MessageID, found, err)
		if err != nil {
			e.log.Error("send failed", logx.String("subscriber", id), logx.Err(err))
			return
		}
		e.log.Info("job-found message sent", logx.String("subscriber", id), logx.Int("message_id", ref.MessageID))

	case sub.StatusMessageID != nil:
		ref := kit.MessageRef{ChatID: sub.ChatID, MessageID: *sub.StatusMessageID}
		_, err := e.send.EditText(ctx, ref, text, nil)
		e.record(id, sub, "edit", ref.MessageID, found, err)
		if err != nil {
			e.log.Error("edit failed", logx.String("subscriber", id),
				logx.Int("message_id", ref.MessageID), logx.Err(err))
			return
		}
		e.log.Debug("status message edited", logx.String("subscriber", id), logx.Int("message_id", ref.MessageID))

	default:
		ref, err := e.send.SendText(ctx, to, text, nil)
		e.record(id, sub, "send", ref.MessageID, found, err)
		if err != nil {
			e.log.Error("send failed", logx.String("subscriber", id), logx.Err(err))
			return
		}
		msgID := ref.MessageID
		if _, err := e.store.Update(id, func(s *subscriber.Subscriber) {
			s.StatusMessageID = &msgID
		}); err != nil {
			// In-memory state is already updated unless the id vanished;
			// a failed disk mirror is logged and left alone.
			e.log.Error("persist status handle failed", logx.String("subscriber", id), logx.Err(err))
		}
		e.log.Info("status message sent", logx.String("subscriber", id), logx.Int("message_id", msgID))
	}
}

// Repost duplicates the subscriber's current status message via the
// transport copy primitive and replaces the stored handle with the copy's.
func (e *Engine) Repost(ctx context.Context, id string) error {
	sub, ok := e.store.Get(id)
	if !ok {
		return subscriber.ErrNotRegistered
	}
	if sub.StatusMessageID == nil {
		return ErrNothingToRepost
	}

	src := kit.MessageRef{ChatID: sub.ChatID, MessageID: *sub.StatusMessageID}
	ref, err := e.send.CopyMessage(ctx, src)
	e.record(id, sub, "copy", ref.MessageID, false, err)
	if err != nil {
		return err
	}

	msgID := ref.MessageID
	if _, err := e.store.Update(id, func(s *subscriber.Subscriber) {
		s.StatusMessageID = &msgID
	}); err != nil {
		e.log.Error("persist repost handle failed", logx.String("subscriber", id), logx.Err(err))
	}
	e.log.Info("status message reposted", logx.String("subscriber", id),
		logx.Int("old_message_id", src.MessageID), logx.Int("message_id", msgID))
	return nil
}

func (e *Engine) record(id string, sub subscriber.Subscriber, action string, msgID int, found bool, opErr error) {
	if e.audit == nil {
		return
	}
	entry := audit.Entry{
		At:           e.now(),
		SubscriberID: id,
		ChatID:       sub.ChatID,
		Action:       action,
		MessageID:    msgID,
		JobFound:     found,
		OK:           opErr == nil,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	if err := e.audit.Append(entry); err != nil {
		e.log.Warn("audit append failed", logx.Err(err))
	}
}

// SubscriberKey converts a platform user id into the store key.
func SubscriberKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
