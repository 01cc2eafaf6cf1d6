package response

// Sink is the transport a Builder emits into. Implementations wrap a live
// response writer (see the httpsink package) or record calls for tests (see
// the responsetest package).
type Sink interface {
	// WriteStatus sets the status line. message may be empty.
	WriteStatus(code int, message string)

	// WriteHeader sets a header, replacing any prior value with the same
	// name. An empty value denotes a bare header line.
	WriteHeader(name, value string)

	// WriteCookie emits one Set-Cookie instruction.
	WriteCookie(c Cookie)

	// WriteBody writes the response payload.
	WriteBody(p []byte) error

	// AlreadySent reports whether the status and headers have already been
	// committed to the client.
	AlreadySent() bool
}

// Finisher is optionally implemented by a Sink that can flush and complete
// the response to the client before the caller continues with other work.
type Finisher interface {
	Finish() error
}
