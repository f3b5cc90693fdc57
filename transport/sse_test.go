package transport

import (
	"bufio"
	"strings"
	"testing"
)

func TestSSEScannerSkipsCommentsAndBlankLines(t *testing.T) {
	raw := "\n: this is a comment\n\ndata: {\"a\":1}\n\ndata: [DONE]\n"
	scanner := newSSEScanner(bufio.NewReader(strings.NewReader(raw)))

	payload, done, err := scanner.next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("did not expect done on the first real payload")
	}
	if payload != `{"a":1}` {
		t.Errorf("unexpected payload: %q", payload)
	}

	_, done, err = scanner.next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected [DONE] to report done")
	}
}

func TestSSEScannerDoneSentinelIgnoresTrailingBytes(t *testing.T) {
	raw := "data: [DONE]\ndata: {\"a\":1}\n"
	scanner := newSSEScanner(bufio.NewReader(strings.NewReader(raw)))

	_, done, err := scanner.next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected [DONE] to terminate the stream even with bytes following it")
	}
}

func TestSSEScannerIgnoresNonDataFields(t *testing.T) {
	raw := "event: message\nid: 1\ndata: {\"a\":1}\n"
	scanner := newSSEScanner(bufio.NewReader(strings.NewReader(raw)))

	payload, done, err := scanner.next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("did not expect done")
	}
	if payload != `{"a":1}` {
		t.Errorf("unexpected payload: %q", payload)
	}
}

func TestIsDataLine(t *testing.T) {
	if !isDataLine([]byte("data: hello")) {
		t.Error("expected data: prefix to be recognized")
	}
	if isDataLine([]byte("event: message")) {
		t.Error("did not expect event: to be recognized as a data line")
	}
}
