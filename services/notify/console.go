package notifysvc

import (
	"context"
	"fmt"
	"net/mail"
	"sync"

	"github.com/zachetka/backend/core"
)

// consoleNotifier logs notifications locally; the default sink in DEV.
type consoleNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*consoleNotifier)(nil)

func NewConsoleNotifier(logger core.Logger) core.Notifier {
	return &consoleNotifier{logger: logger}
}

func (n *consoleNotifier) Notify(ctx context.Context, severity core.NotifySeverity, message string) {
	if severity == core.NotifyError {
		n.logger.Error(message)
		return
	}
	n.logger.Info(message)
}

// emailNotifier forwards notifications to the operator mailbox.
type emailNotifier struct {
	mailer core.EmailService
	to     mail.Address
}

var _ core.Notifier = (*emailNotifier)(nil)

func NewEmailNotifier(conf *core.Config, mailer core.EmailService) core.Notifier {
	return &emailNotifier{mailer: mailer, to: mail.Address{Address: conf.OperatorEmail}}
}

func (n *emailNotifier) Notify(ctx context.Context, severity core.NotifySeverity, message string) {
	n.mailer.SendMessages(&core.EmailMessage{
		To:      []mail.Address{n.to},
		Subject: fmt.Sprintf("sync %s", severity),
		Body:    message,
	})
}

// RecordingNotifier captures notifications for assertions in tests.
type RecordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

var _ core.Notifier = (*RecordingNotifier)(nil)

func NewRecordingNotifier() *RecordingNotifier { return &RecordingNotifier{} }

func (n *RecordingNotifier) Notify(ctx context.Context, severity core.NotifySeverity, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, string(severity)+": "+message)
}

func (n *RecordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}
