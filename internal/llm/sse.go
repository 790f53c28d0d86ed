package llm

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ErrStopStream may be returned by a ReadSSE callback to end reading without error.
var ErrStopStream = errors.New("stop stream")

// ReadSSE parses a text/event-stream body and calls onEvent once per event with
// its name and joined data lines.
func ReadSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		ev := eventName
		dataLines = nil
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if ferr := flush(); ferr != nil {
				return stopOrErr(ferr)
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(line, "data:")
			dataLines = append(dataLines, strings.TrimPrefix(data, " "))
		}

		if eof {
			return stopOrErr(flush())
		}
	}
}

func stopOrErr(err error) error {
	if errors.Is(err, ErrStopStream) {
		return nil
	}
	return err
}
