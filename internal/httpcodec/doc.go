// Package httpcodec reads and writes HTTP/1.x messages over raw byte
// streams. Unlike net/http's server machinery it surfaces a closed error
// set (incomplete, malformed, invalid or mismatched content length,
// oversized body, connection failure) so the proxy can map each failure to
// the correct originated status code.
package httpcodec
