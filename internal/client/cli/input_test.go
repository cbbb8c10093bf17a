package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "trimmed", in: "  alice \n", want: "alice"},
		{name: "no trailing newline", in: "bob", want: "bob"},
		{name: "empty answer", in: "\n", want: ""},
		{name: "too long", in: strings.Repeat("x", maxLineRunes+1) + "\n", wantErr: ErrInputTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := ReadLine(reader(tt.in), &out, "Handle")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Handle: ", out.String())
		})
	}
}

func TestReadLine_ClosedInput(t *testing.T) {
	var out bytes.Buffer
	_, err := ReadLine(reader(""), &out, "Handle")
	require.Error(t, err)
}

func TestReadBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		rest string
	}{
		{name: "empty line ends", in: "a\n  b\n\nnext\n", want: "a\n  b", rest: "next\n"},
		{name: "dot ends", in: "# Title\n.\nnext\n", want: "# Title", rest: "next\n"},
		{name: "eof ends", in: "only line", want: "only line"},
		{name: "nothing entered", in: "\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.in)
			var out bytes.Buffer
			got, err := ReadBlock(r, &out, "Post body")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(out.String(), "Post body"))

			rest, _ := r.ReadString('\n')
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestReadBlock_TooLong(t *testing.T) {
	line := strings.Repeat("y", 1000) + "\n"
	var out bytes.Buffer
	_, err := ReadBlock(reader(strings.Repeat(line, 25)), &out, "Requirements")
	require.ErrorIs(t, err, ErrInputTooLong)
}

func TestReadSecret(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	var out bytes.Buffer
	pw, err := ReadSecret(&out, "Password")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, nil }
	_, err = ReadSecret(&out, "Password")
	require.ErrorIs(t, err, ErrEmptyInput)

	boom := errors.New("boom")
	readPassword = func(int) ([]byte, error) { return nil, boom }
	_, err = ReadSecret(&out, "Password")
	require.ErrorIs(t, err, boom)
}
