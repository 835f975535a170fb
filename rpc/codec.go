package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxContentLength bounds a single frame's body to guard against a runaway
// Content-Length value corrupting the stream; LSP payloads are small, 10MB
// is generous.
const maxContentLength = 10 * 1024 * 1024

// ErrNeedMore names the "frame not yet complete" condition. Decode does not
// return it: Decode blocks on its reader until a frame's bytes arrive, and a
// stream that ends partway through a frame yields io.EOF (inside the header
// block) or io.ErrUnexpectedEOF (inside the body) instead.
var ErrNeedMore = errors.New("rpc: need more data")

// Decode reads exactly one header-framed JSON-RPC message from r and
// returns its raw JSON body. It never reads past the end of one frame, so
// repeated calls on a stream consume exactly one message each.
//
// Decode tolerates any casing of header names, ignores unrecognized
// headers, and requires Content-Length. A malformed header block (missing
// colon, missing, non-numeric or over-limit length) or a body that is not
// valid UTF-8 JSON is an ErrDecode and the stream must be treated as
// corrupt. A stream that ends before the blank separator line returns
// io.EOF; one that ends inside the body returns io.ErrUnexpectedEOF.
func Decode(r *bufio.Reader) (json.RawMessage, error) {
	contentLength := -1

	for {
		line, err := readHeaderLine(r)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break // blank line: end of header block
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line missing colon: %q", ErrDecode, line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if strings.EqualFold(name, "Content-Length") {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrDecode, value)
			}
			if n > maxContentLength {
				return nil, fmt.Errorf("%w: Content-Length %d exceeds limit", ErrDecode, n)
			}
			contentLength = n
		}
		// Content-Type and any other header: advisory, discarded.
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length header", ErrDecode)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: reading body: %v", ErrDecode, err)
	}

	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid UTF-8", ErrDecode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrDecode)
	}

	return json.RawMessage(body), nil
}

// readHeaderLine reads one CRLF-terminated header line, with the
// terminator stripped. A bare LF is also accepted for interop with
// non-conforming servers, matching the tolerance LSP clients commonly
// extend to header framing.
func readHeaderLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Encode serializes v to JSON and writes it to w with a Content-Length
// header, buffering header and body into a single write so a concurrent
// reader on the other end never observes a partial header.
//
// Content-Length counts bytes, not runes or code points, so multi-byte
// UTF-8 payloads are framed correctly without special-casing.
func Encode(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("rpc: encode: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)

	_, err = w.Write(buf.Bytes())
	return err
}
