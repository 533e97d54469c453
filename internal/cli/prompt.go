package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func (r *runner) username() (string, error) {
	if u := strings.TrimSpace(r.opt.User); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(os.Getenv("TASKMATE_USERNAME")); u != "" {
		return u, nil
	}
	fmt.Fprint(r.opt.Err, "Username: ")
	line, err := r.readLine()
	if err != nil {
		return "", fmt.Errorf("read username: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// password reads TASKMATE_PASSWORD, or prompts without echo on a terminal.
func (r *runner) password() (string, error) {
	if p, ok := os.LookupEnv("TASKMATE_PASSWORD"); ok {
		return p, nil
	}
	fmt.Fprint(r.opt.Err, "Password: ")
	if f, ok := r.opt.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.opt.Err)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := r.readLine()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

func (r *runner) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
