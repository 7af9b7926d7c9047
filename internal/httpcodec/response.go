package httpcodec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ReadResponse reads one HTTP/1.x response off r. The request method decides
// whether a body is expected (HEAD responses carry none). The returned
// error, when non-nil, is always a *Error.
func ReadResponse(r *bufio.Reader, method string) (*http.Response, error) {
	header, err := readHeaderBlock(r)
	if err != nil {
		return nil, err
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return nil, err
	}

	resp, parseErr := http.ReadResponse(bufio.NewReader(bytes.NewReader(header)), &http.Request{Method: method})
	if parseErr != nil {
		return nil, errMalformed(parseErr)
	}

	if contentLength > MaxBodySize {
		return nil, errBodyTooLarge()
	}

	var body []byte
	switch {
	case !bodyAllowed(method, resp.StatusCode):
		body = []byte{}
	case hasContentLength(header):
		body = make([]byte, contentLength)
		if _, readErr := io.ReadFull(r, body); readErr != nil {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				return nil, errContentLengthMismatch()
			}
			return nil, errConnection(readErr)
		}
	default:
		// No framing information: the body runs until the peer closes.
		body, err = readToClose(r)
		if err != nil {
			return nil, err
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// WriteResponse serializes resp to w: status line, headers, body.
func WriteResponse(resp *http.Response, w io.Writer) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)
	if err := resp.Header.Write(&b); err != nil {
		return errConnection(err)
	}
	b.WriteString("\r\n")

	if resp.Body != nil {
		if _, err := io.Copy(&b, resp.Body); err != nil {
			return errConnection(err)
		}
	}

	if _, err := w.Write(b.Bytes()); err != nil {
		return errConnection(err)
	}
	return nil
}

// NewErrorResponse builds a response the proxy originates itself, with the
// status text as a small plain-text body.
func NewErrorResponse(status int) *http.Response {
	body := []byte(fmt.Sprintf("%d %s\n", status, http.StatusText(status)))

	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Content-Length", fmt.Sprintf("%d", len(body)))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// FormatResponseLine renders the status line for logging.
func FormatResponseLine(resp *http.Response) string {
	return fmt.Sprintf("%s %s", resp.Proto, resp.Status)
}

func bodyAllowed(method string, status int) bool {
	if method == http.MethodHead {
		return false
	}
	if status >= 100 && status < 200 {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusNotModified
}

func hasContentLength(header []byte) bool {
	for _, line := range strings.Split(string(header), "\n") {
		line = strings.TrimSuffix(line, "\r")
		name, _, found := strings.Cut(line, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			return true
		}
	}
	return false
}

func readToClose(r *bufio.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, errConnection(err)
	}
	if len(body) > MaxBodySize {
		return nil, errBodyTooLarge()
	}
	return body, nil
}
