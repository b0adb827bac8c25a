package core

// Logger logs messages locally and reports them to the error tracker.
// expected args: error, map[string]interface{}, or any value worth dumping
// next to the message.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
