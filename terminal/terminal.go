// Package terminal is the line-oriented I/O adapter: prompts, reads, choice
// parsing and tabular output. It knows nothing about the café.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cafe-ordering/database"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// ErrInputFormat marks a line that is not a menu choice. ReadChoice handles
// it by prompting again; it never reaches callers.
var ErrInputFormat = errors.New("input is not an integer")

type Terminal struct {
	in  *bufio.Reader
	out io.Writer

	// fd of the input when it is an interactive terminal, -1 otherwise
	fd int
	// pending holds a line read still in flight after a cancelled call
	pending chan readResult

	okColor   *color.Color
	failColor *color.Color
}

// New wraps the given reader and writer. Secrets are read with echo disabled
// only when in is an *os.File attached to a terminal.
func New(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		in:        bufio.NewReader(in),
		out:       out,
		fd:        -1,
		okColor:   color.New(color.FgGreen),
		failColor: color.New(color.FgRed),
	}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t.fd = int(f.Fd())
	}
	return t
}

// Stdio is the terminal of the running process.
func Stdio() *Terminal {
	return New(os.Stdin, os.Stdout)
}

type readResult struct {
	line string
	err  error
}

// readString returns the next raw line. The read itself runs on its own
// goroutine so a cancelled ctx unblocks the caller; a read left pending by
// a cancellation is picked up by the next call.
func (t *Terminal) readString(ctx context.Context) (string, error) {
	if t.pending == nil {
		ch := make(chan readResult, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}()
		t.pending = ch
	}
	select {
	case r := <-t.pending:
		t.pending = nil
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ReadLine prints prompt and returns the next line without its line ending.
// A final line without a newline is returned as is; io.EOF is returned only
// when nothing was read. It returns ctx.Err() once ctx is done.
func (t *Terminal) ReadLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.readString(ctx)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadSecret is ReadLine with echo disabled on interactive terminals.
func (t *Terminal) ReadSecret(ctx context.Context, prompt string) (string, error) {
	if t.fd < 0 || t.pending != nil || t.in.Buffered() > 0 {
		return t.ReadLine(ctx, prompt)
	}
	fmt.Fprint(t.out, prompt)
	state, _ := term.GetState(t.fd)
	ch := make(chan readResult, 1)
	go func() {
		b, err := term.ReadPassword(t.fd)
		ch <- readResult{line: string(b), err: err}
	}()
	select {
	case r := <-ch:
		fmt.Fprintln(t.out)
		return r.line, r.err
	case <-ctx.Done():
		if state != nil {
			term.Restore(t.fd, state)
		}
		fmt.Fprintln(t.out)
		return "", ctx.Err()
	}
}

// ParseChoice parses a menu selection.
func ParseChoice(line string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInputFormat, line)
	}
	return n, nil
}

// ReadChoice prompts until the user enters an integer. Only read errors
// (including io.EOF) and ctx errors are returned.
func (t *Terminal) ReadChoice(ctx context.Context) (int, error) {
	for {
		line, err := t.ReadLine(ctx, "Please make your choice: ")
		if err != nil {
			return 0, err
		}
		n, err := ParseChoice(line)
		if err == nil {
			return n, nil
		}
		fmt.Fprintln(t.out, "Your input is invalid!")
	}
}

// Println writes a plain line.
func (t *Terminal) Println(a ...any) {
	fmt.Fprintln(t.out, a...)
}

func (t *Terminal) Printf(format string, a ...any) {
	fmt.Fprintf(t.out, format, a...)
}

// Success reports a completed action.
func (t *Terminal) Success(format string, a ...any) {
	t.okColor.Fprintln(t.out, fmt.Sprintf(format, a...))
}

// Failure reports an action that was refused or failed.
func (t *Terminal) Failure(format string, a ...any) {
	t.failColor.Fprintln(t.out, fmt.Sprintf(format, a...))
}

// Menu prints a titled list of numbered options.
func (t *Terminal) Menu(title string, options []string) {
	if title != "" {
		fmt.Fprintln(t.out, title)
		fmt.Fprintln(t.out, strings.Repeat("-", len(title)))
	}
	for _, o := range options {
		fmt.Fprintln(t.out, o)
	}
}

// Table prints a header row followed by one tab separated line per record
// and returns the number of records printed. Nothing is printed for an
// empty result.
func (t *Terminal) Table(rs database.ResultSet) int {
	if len(rs.Records) == 0 {
		return 0
	}
	fmt.Fprintln(t.out, strings.Join(rs.Columns, "\t")+"\t")
	for _, rec := range rs.Records {
		vals := make([]string, len(rs.Columns))
		for i, c := range rs.Columns {
			vals[i] = rec[c]
		}
		fmt.Fprintln(t.out, strings.Join(vals, "\t")+"\t")
	}
	return len(rs.Records)
}
