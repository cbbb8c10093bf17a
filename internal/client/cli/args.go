package cli

import (
	"strconv"
	"strings"
)

func argID(args []string, i int, usage string) (int64, error) {
	if len(args) <= i {
		return 0, usageError{usage}
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError{usage}
	}
	return id, nil
}

func argText(args []string, from int) string {
	if len(args) <= from {
		return ""
	}
	return strings.Join(args[from:], " ")
}
