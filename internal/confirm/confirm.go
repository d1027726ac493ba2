// Package confirm asks an operator yes/no questions before destructive or
// recovery actions run.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Confirmer answers a yes/no question. A false answer with a nil error is a
// normal denial.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Func adapts a function to Confirmer.
type Func func(ctx context.Context, question string) (bool, error)

// Confirm implements Confirmer.
func (f Func) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Static always gives the same answer. It backs non-interactive runs where
// the answer comes from configuration.
type Static struct {
	Answer bool
}

// Confirm implements Confirmer.
func (s Static) Confirm(_ context.Context, question string) (bool, error) {
	slog.Debug("Auto-answering confirmation", "question", question, "answer", s.Answer)
	return s.Answer, nil
}

// Prompt asks on writer and reads the answer from reader. Only "y" and "yes"
// (case-insensitive) confirm; anything else, including EOF, denies.
type Prompt struct {
	mu      sync.Mutex
	reader  *bufio.Reader
	writer  io.Writer
	pending chan answer
}

// NewPrompt creates a Prompt over the given streams.
func NewPrompt(r io.Reader, w io.Writer) *Prompt {
	return &Prompt{reader: bufio.NewReader(r), writer: w}
}

type answer struct {
	line string
	err  error
}

// Confirm implements Confirmer. Questions are serialized so concurrent
// callers never interleave on the terminal.
func (p *Prompt) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _ = fmt.Fprintf(p.writer, "%s [y/N]: ", question)

	// A read abandoned by a canceled question is still owed a line; the
	// next question consumes it instead of starting a second reader.
	if p.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := p.reader.ReadString('\n')
			ch <- answer{line: line, err: err}
		}()
		p.pending = ch
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-p.pending:
		p.pending = nil
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
