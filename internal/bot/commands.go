package bot

import (
	"context"
	"errors"
	"fmt"

	"vacancywatch/internal/engine"
	"vacancywatch/internal/flow"
	"vacancywatch/internal/subscriber"
	kit "vacancywatch/internal/transport"
	logx "vacancywatch/pkg/logx"
)

const helpText = "Available commands:\n\n" +
	"/activate - Activate real-time updates.\n" +
	"/deactivate - Stop receiving updates.\n" +
	"/username - Customize your username.\n" +
	"/email - Toggle email alerts.\n" +
	"/phone - Toggle text alerts.\n" +
	"/repost - Repost current job status.\n" +
	"/start - Register new user."

func (r *Router) handleStart(ctx context.Context, msg kit.Message) {
	id := engine.SubscriberKey(msg.FromID)
	sub, created, err := r.store.Register(id, msg.FromID, msg.ChatID)
	if err != nil {
		// Disk mirror failure only; registration itself took effect.
		r.log.Error("register persist failed", logx.String("subscriber", id), logx.Err(err))
	}

	if created {
		r.log.Info("new subscriber registered", logx.String("subscriber", id))
		r.reply(ctx, msg, fmt.Sprintf(
			"Welcome! Your default username is %s. Type /activate to begin receiving updates.", sub.Username))
		return
	}

	hint := "Type /activate to receive updates."
	if sub.Active {
		hint = "Type /deactivate to stop receiving updates."
	}
	r.reply(ctx, msg, fmt.Sprintf("Welcome back, %s! %s", sub.Username, hint))
}

func (r *Router) handleActivate(ctx context.Context, msg kit.Message, id string, active bool) {
	sub, ok := r.store.Get(id)
	if !ok {
		r.reply(ctx, msg, notRegisteredReply)
		return
	}

	if sub.Active == active {
		if active {
			r.reply(ctx, msg, "You are already receiving real-time updates.")
		} else {
			r.reply(ctx, msg, "You are already not receiving real-time updates.")
		}
		return
	}

	if _, err := r.store.Update(id, func(s *subscriber.Subscriber) { s.Active = active }); err != nil {
		r.log.Error("activation persist failed", logx.String("subscriber", id), logx.Err(err))
	}
	if active {
		r.log.Info("updates activated", logx.String("subscriber", id))
		r.reply(ctx, msg, "Activated! You will now receive real-time updates.")
	} else {
		r.log.Info("updates deactivated", logx.String("subscriber", id))
		r.reply(ctx, msg, "Deactivated. You will no longer receive real-time updates.")
	}
}

func (r *Router) beginFlow(ctx context.Context, msg kit.Message, id string, state flow.State) {
	prompt, err := r.flow.Begin(id, state)
	if err != nil {
		if errors.Is(err, subscriber.ErrNotRegistered) {
			r.reply(ctx, msg, notRegisteredReply)
			return
		}
		r.log.Error("conversation start failed", logx.String("subscriber", id), logx.Err(err))
		r.reply(ctx, msg, "An error occurred. Please try again.")
		return
	}
	r.reply(ctx, msg, prompt)
}

func (r *Router) handleConversationReply(ctx context.Context, msg kit.Message, text string) {
	id := engine.SubscriberKey(msg.FromID)
	reply, _ := r.flow.HandleText(id, text)
	if reply == "" {
		// No open conversation; plain chatter is ignored.
		return
	}
	r.reply(ctx, msg, reply)
}

func (r *Router) handleClear(ctx context.Context, msg kit.Message, id string) {
	reply, handled := r.flow.Clear(id)
	if !handled {
		r.reply(ctx, msg, "Nothing to clear.")
		return
	}
	r.reply(ctx, msg, reply)
}

func (r *Router) handleCancel(ctx context.Context, msg kit.Message, id string) {
	reply, handled := r.flow.Cancel(id)
	if !handled {
		r.reply(ctx, msg, "No operation to cancel.")
		return
	}
	r.reply(ctx, msg, reply)
}

func (r *Router) handleRepost(ctx context.Context, msg kit.Message, id string) {
	err := r.eng.Repost(ctx, id)
	switch {
	case err == nil:
		// The copied message itself is the user-visible result.
	case errors.Is(err, subscriber.ErrNotRegistered):
		r.reply(ctx, msg, notRegisteredReply)
	case errors.Is(err, engine.ErrNothingToRepost):
		r.reply(ctx, msg, "No status message to repost.")
	default:
		r.log.Error("repost failed", logx.String("subscriber", id), logx.Err(err))
		r.reply(ctx, msg, "An error occurred. Please try again.")
	}
}
