// Package bot routes inbound chat commands to the engine, store and
// conversation flow.
package bot

import (
	"context"
	"strings"

	"vacancywatch/internal/engine"
	"vacancywatch/internal/flow"
	"vacancywatch/internal/subscriber"
	kit "vacancywatch/internal/transport"
	logx "vacancywatch/pkg/logx"
)

const notRegisteredReply = "Please use the /start command to initialize your profile."

type Router struct {
	store *subscriber.Store
	flow  *flow.Manager
	eng   *engine.Engine
	send  kit.Adapter
	log   logx.Logger
}

func NewRouter(store *subscriber.Store, fl *flow.Manager, eng *engine.Engine, send kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{store: store, flow: fl, eng: eng, send: send, log: log}
}

// Run consumes inbound messages until ctx is done. One goroutine handles all
// commands and conversation replies, so command-triggered mutations are
// naturally serialized with each other.
func (r *Router) Run(ctx context.Context, in <-chan kit.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			r.Handle(ctx, msg)
		}
	}
}

// Handle dispatches a single inbound message.
func (r *Router) Handle(ctx context.Context, msg kit.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !strings.HasPrefix(text, "/") {
		r.handleConversationReply(ctx, msg, text)
		return
	}

	cmd, _ := splitCommand(text)
	id := engine.SubscriberKey(msg.FromID)

	switch cmd {
	case "start":
		r.handleStart(ctx, msg)
	case "activate":
		r.handleActivate(ctx, msg, id, true)
	case "deactivate":
		r.handleActivate(ctx, msg, id, false)
	case "username":
		r.beginFlow(ctx, msg, id, flow.AwaitingUsername)
	case "email":
		r.beginFlow(ctx, msg, id, flow.AwaitingEmail)
	case "phone":
		r.beginFlow(ctx, msg, id, flow.AwaitingPhone)
	case "clear":
		r.handleClear(ctx, msg, id)
	case "cancel":
		r.handleCancel(ctx, msg, id)
	case "repost":
		r.handleRepost(ctx, msg, id)
	case "help":
		r.reply(ctx, msg, helpText)
	default:
		r.log.Debug("unknown command ignored",
			logx.String("command", cmd), logx.Int64("from", msg.FromID))
	}
}

// splitCommand returns the command name (without slash or @botname suffix)
// and the remaining arguments.
func splitCommand(text string) (string, string) {
	rest := ""
	cmd := strings.TrimPrefix(text, "/")
	if i := strings.IndexAny(cmd, " \t"); i >= 0 {
		cmd, rest = cmd[:i], strings.TrimSpace(cmd[i+1:])
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), rest
}

func (r *Router) reply(ctx context.Context, msg kit.Message, text string) {
	to := kit.ChatTarget{ChatID: msg.ChatID}
	if _, err := r.send.SendText(ctx, to, text, nil); err != nil {
		r.log.Error("reply failed", logx.Int64("chat", msg.ChatID), logx.Err(err))
	}
}
