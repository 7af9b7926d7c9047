package httpcodec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	// MaxHeadersSize caps the header block of a single message.
	MaxHeadersSize = 8000
	// MaxBodySize caps the body of a single message.
	MaxBodySize = 10_000_000
)

// ReadRequest reads one HTTP/1.x request off r. The returned error, when
// non-nil, is always a *Error; IsClientClosed distinguishes a clean
// connection close from a truncated request.
func ReadRequest(r *bufio.Reader) (*http.Request, error) {
	header, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return nil, err
	}

	req, parseErr := http.ReadRequest(bufio.NewReader(bytes.NewReader(header)))
	if parseErr != nil {
		return nil, errMalformed(parseErr)
	}

	if contentLength > MaxBodySize {
		return nil, errBodyTooLarge()
	}

	body := []byte{}
	if contentLength > 0 {
		body = make([]byte, contentLength)
		if _, readErr := io.ReadFull(r, body); readErr != nil {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				return nil, errContentLengthMismatch()
			}
			return nil, errConnection(readErr)
		}
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	return req, nil
}

// WriteRequest serializes req to w: request line, Host, headers, body.
func WriteRequest(req *http.Request, w io.Writer) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s\r\n", req.Method, req.URL.RequestURI(), req.Proto)
	if req.Host != "" {
		fmt.Fprintf(&b, "Host: %s\r\n", req.Host)
	}
	if err := req.Header.Write(&b); err != nil {
		return errConnection(err)
	}
	b.WriteString("\r\n")

	if req.Body != nil {
		if _, err := io.Copy(&b, req.Body); err != nil {
			return errConnection(err)
		}
	}

	if _, err := w.Write(b.Bytes()); err != nil {
		return errConnection(err)
	}
	return nil
}

// ExtendHeader appends value to an existing header, comma separated, or
// sets it when absent. Requests can legally carry the header on several
// lines, so every existing value is folded in, not just the first.
// Used for X-Forwarded-For style accumulation.
func ExtendHeader(req *http.Request, name, value string) {
	existing := req.Header.Values(name)
	if len(existing) == 0 {
		req.Header.Set(name, value)
		return
	}
	req.Header.Set(name, strings.Join(existing, ", ")+", "+value)
}

// FormatRequestLine renders the request line for logging.
func FormatRequestLine(req *http.Request) string {
	return fmt.Sprintf("%s %s %s", req.Method, req.URL.RequestURI(), req.Proto)
}

// readHeaderBlock accumulates lines up to and including the blank line that
// terminates a header block. The size cap is enforced per chunk read, not
// per completed line, so a peer that never sends a newline cannot buffer
// more than the cap plus one bufio chunk.
func readHeaderBlock(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	lineStart := 0
	for {
		chunk, err := r.ReadSlice('\n')
		buf.Write(chunk)

		if buf.Len() > MaxHeadersSize {
			return nil, errBodyTooLarge()
		}

		if err == bufio.ErrBufferFull {
			// Long line, keep collecting it chunk by chunk.
			continue
		}
		if err != nil {
			if err == io.EOF {
				return nil, errIncomplete(buf.Len())
			}
			return nil, errConnection(err)
		}

		line := buf.Bytes()[lineStart:]
		if len(line) == 1 || (len(line) == 2 && line[0] == '\r') {
			return buf.Bytes(), nil
		}
		lineStart = buf.Len()
	}
}

// parseContentLength extracts and validates the Content-Length header from a
// raw header block. Returns 0 when the header is absent. The raw value is
// checked here because http.ReadRequest folds a bad Content-Length into a
// generic parse error. Lines are split on LF with an optional trailing CR,
// matching what readHeaderBlock accepts.
func parseContentLength(header []byte) (int, error) {
	length := -1
	for _, line := range strings.Split(string(header), "\n") {
		line = strings.TrimSuffix(line, "\r")
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, errInvalidContentLength()
		}
		if length >= 0 && length != n {
			return 0, errInvalidContentLength()
		}
		length = n
	}

	if length < 0 {
		return 0, nil
	}
	return length, nil
}
