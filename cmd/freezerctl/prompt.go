package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type lineReader struct {
	r *bufio.Reader
}

func (l *lineReader) readLine() (string, error) {
	line, err := l.r.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return "", errors.New("no input")
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) reader() *lineReader {
	if a.lines == nil {
		a.lines = &lineReader{r: bufio.NewReader(a.in)}
	}
	return a.lines
}

// prompt asks for one line of input on stderr.
func (a *app) prompt(label string) (string, error) {
	_, _ = fmt.Fprint(a.errOut, label)
	s, err := a.reader().readLine()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(s), nil
}

// promptPassword reads a password without echo when stdin is a terminal and
// as a plain line otherwise.
func (a *app) promptPassword(label string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(a.errOut, label)
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(a.errOut)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	_, _ = fmt.Fprint(a.errOut, label)
	s, err := a.reader().readLine()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return s, nil
}
