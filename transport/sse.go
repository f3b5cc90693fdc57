package transport

import (
	"bufio"
	"bytes"
	"strings"
)

// doneSentinel is the payload that terminates an OpenAI/Anthropic-style SSE
// stream, per spec §4.5 and §8's streaming scenario.
const doneSentinel = "[DONE]"

// sseScanner pulls "data:" lines out of a chunked SSE byte stream, skipping
// comments, blank lines, and any other SSE field (event:, id:, retry:) the
// provider emits. Ported from the teacher's internal/utils/http_stream.go
// SSEScanner: it is already schema-agnostic (no provider ever appears in
// SSE framing itself), so the only change here is that it now reports
// [DONE] explicitly instead of the caller special-casing it after the fact.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(body *bufio.Reader) *sseScanner {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 64*1024), int(maxResponseBodySize))
	return &sseScanner{scanner: s}
}

// next returns the next data payload, whether the stream has ended (either
// via [DONE] or EOF), and any scan error. done is true both when [DONE] was
// seen and when the underlying reader was exhausted without it, since a
// well-behaved caller treats both the same way: stop reading.
func (s *sseScanner) next() (data string, done bool, err error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		line = strings.TrimRight(line, "\r")

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Some other SSE field (event:, id:, retry:) — not a content chunk.
			continue
		}
		payload = strings.TrimPrefix(payload, " ")

		if payload == doneSentinel {
			return "", true, nil
		}
		return payload, false, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", true, err
	}
	return "", true, nil
}

// isDataLine reports whether raw (a single line, no trailing newline)
// carries an SSE data field. Exposed for tests that feed the scanner
// byte-for-byte provider fixtures.
func isDataLine(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte("data:"))
}
