package core

import "context"

type NotifySeverity string

const (
	NotifyInfo  NotifySeverity = "info"
	NotifyError NotifySeverity = "error"
)

// Notifier delivers short human-readable status/error texts to the
// operator channel (messaging bot, e-mail, console).
//
// Delivery is best-effort: implementations log their own failures and
// never return an error into the caller; the sync pipeline must not be
// aborted by a dead notification channel.
type Notifier interface {
	Notify(ctx context.Context, severity NotifySeverity, message string)
}

// MultiNotifier fans a notification out to every configured sink.
type MultiNotifier []Notifier

var _ Notifier = (MultiNotifier)(nil)

func (mn MultiNotifier) Notify(ctx context.Context, severity NotifySeverity, message string) {
	for _, n := range mn {
		n.Notify(ctx, severity, message)
	}
}
