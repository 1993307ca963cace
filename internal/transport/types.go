package transport

import "context"

// Message is an inbound chat message normalized away from the
// underlying platform types.
type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

// ChatTarget addresses an outbound message.
type ChatTarget struct {
	ChatID int64
}

// MessageRef identifies a previously sent message so it can be
// edited or copied later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the chat transport consumed by the engine and command router.
//
// All methods may fail with a transport error; callers are expected to treat
// such failures as recoverable and scoped to the one message involved.
type Adapter interface {
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) (MessageRef, error)
	// CopyMessage reposts an existing message into the same chat and returns
	// the ref of the fresh copy.
	CopyMessage(ctx context.Context, ref MessageRef) (MessageRef, error)
}
