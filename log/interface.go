package log

// Logger the request logger of the api, every record it prints carries the
// request id and the tags injected while the request is served
type Logger interface {
	// Action a child logger whose records carry action, named after the
	// handler, e.g. "service.forgotPassword"
	Action(action string) StdLogger
	// With a child logger with extra fields, values are plain strings or numbers
	With(fields map[string]any) StdLogger
	// Inject add tags to this logger itself, visible to later records of the
	// request
	Inject(tags map[string]any)
}

// StdLogger print a record per call. msgOrFormat is formatted only when args
// are given, a message carrying a literal % is safe without them.
type StdLogger interface {
	Debug(msgOrFormat string, args ...any)
	Info(msgOrFormat string, args ...any)
	Warn(msgOrFormat string, args ...any)
	Error(msgOrFormat string, args ...any)
	Fatal(msgOrFormat string, args ...any)
}
