package core

// Logger is implemented by every logging service.
// expected args: error, map[string]interface{} and/or a reported user identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity is the authenticated account an event is reported for.
type Identity struct {
	ID       string
	Username string
	Role     string
}
