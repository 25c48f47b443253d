package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadRandomSequence reads a random file. The first line holds the number of
// values, followed by one value per line.
func ReadRandomSequence(input io.Reader) ([]int, error) {
	scanner := bufio.NewScanner(input)
	line := 0

	next := func() (string, bool) {
		for scanner.Scan() {
			line++

			text := strings.TrimSpace(scanner.Text())
			if text != "" {
				return text, true
			}
		}

		return "", false
	}

	text, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: empty random file", ErrMalformed)
	}

	count, err := strconv.Atoi(text)
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("line %d: %w: invalid count %q",
			line, ErrMalformed, text)
	}

	values := make([]int, 0, count)
	for len(values) < count {
		text, ok := next()
		if !ok {
			if err := scanner.Err(); err != nil {
				return nil, err
			}

			return nil, fmt.Errorf("%w: %d values announced, %d found",
				ErrMalformed, count, len(values))
		}

		v, err := strconv.Atoi(text)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("line %d: %w: invalid value %q",
				line, ErrMalformed, text)
		}

		values = append(values, v)
	}

	return values, nil
}
