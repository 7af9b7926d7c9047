// Package proxy accepts client connections and forwards their HTTP/1.x
// requests to upstream servers. Each accepted connection gets its own
// goroutine and one upstream connection for its whole lifetime; internal
// failures are converted into originated HTTP error responses.
package proxy
