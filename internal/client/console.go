package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/omochice/framed-chat/pkg/protocol"
)

// LineSource yields input lines without their terminator. It returns
// io.EOF when input is exhausted.
type LineSource interface {
	NextLine() (string, error)
}

// LineWriter prints one line of output.
type LineWriter interface {
	WriteLine(text string)
}

// ReaderSource reads lines from an io.Reader. Lines of any length are
// accepted; only the first protocol.MaxBodySize bytes of each are kept.
type ReaderSource struct {
	r *bufio.Reader
}

// NewLineSource wraps r.
func NewLineSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: bufio.NewReader(r)}
}

// NextLine implements LineSource.
func (s *ReaderSource) NextLine() (string, error) {
	var line []byte
	started := false
	for {
		chunk, isPrefix, err := s.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				break
			}
			return "", err
		}
		started = true
		if room := protocol.MaxBodySize - len(line); room > 0 {
			line = append(line, chunk[:min(room, len(chunk))]...)
		}
		if !isPrefix {
			break
		}
	}
	return strings.TrimSuffix(string(line), "\r"), nil
}

// Console writes lines to an io.Writer. It is safe for concurrent use.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// WriteLine implements LineWriter.
func (c *Console) WriteLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, text)
}

type discard struct{}

func (discard) WriteLine(string) {}
