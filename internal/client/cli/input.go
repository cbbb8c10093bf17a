package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Limits for text read from the terminal.
const (
	maxBodyRunes = 20000
	maxLineRunes = 200
)

// readPassword reads without echo; tests replace it.
var readPassword = term.ReadPassword

// ReadLine writes "prompt: " to w and reads one trimmed line. A final line
// without a newline is accepted. An empty answer is returned as "".
func ReadLine(reader *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if len([]rune(line)) > maxLineRunes {
		return "", fmt.Errorf("%s: %w", prompt, ErrInputTooLong)
	}
	return line, nil
}

// ReadSecret prompts on w and reads a password from stdin without echo.
// The caller owns the returned slice and should wipe it.
func ReadSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "%s: ", prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("%s: %w", prompt, ErrEmptyInput)
	}
	return pw, nil
}

// ReadBlock reads markdown text line by line until an empty line, a line
// holding a single "." or EOF. Inner lines keep their indentation; the
// result may be empty.
func ReadBlock(reader *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s (finish with an empty line or \".\"):\n", prompt); err != nil {
		return "", err
	}

	var (
		b     strings.Builder
		runes int
	)
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" || line == "." {
			break
		}
		runes += len([]rune(line)) + 1
		if runes > maxBodyRunes {
			return "", fmt.Errorf("%s: %w (max %d characters)", prompt, ErrInputTooLong, maxBodyRunes)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if err != nil {
			break
		}
	}

	return strings.TrimSpace(b.String()), nil
}
