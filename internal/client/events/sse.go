package events

import (
	"bufio"
	"io"
	"strings"
)

// frame is one server-sent event. Event is empty when the frame carried no
// "event:" field.
type frame struct {
	Event string
	Data  string
	ID    string
}

// scanner reads text/event-stream frames. Frames are separated by blank
// lines; multi-line data is joined with "\n"; comment lines and unknown
// fields are skipped.
type scanner struct {
	r       *bufio.Reader
	current frame
	lastID  string
	err     error
}

func newScanner(r io.Reader) *scanner {
	return &scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next frame carrying data.
func (s *scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = frame{}

	var (
		data    []string
		event   string
		hasData bool
	)
	emit := func() bool {
		s.current = frame{Event: event, Data: strings.Join(data, "\n"), ID: s.lastID}
		return true
	}

	for {
		line, err := s.r.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if err == io.EOF && hasData {
				return emit()
			}
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				return emit()
			}
			event = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if ok {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			event = value
		case "id":
			s.lastID = value
		}
	}
}

func (s *scanner) Frame() frame {
	return s.current
}

// Err returns nil after a clean end of stream.
func (s *scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
