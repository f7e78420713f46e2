package actions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// sink is the --output destination of the reporting actions. An empty path
// or "-" means standard output.
type sink struct {
	path   string
	stdout io.Writer

	w    *bufio.Writer
	file *os.File
}

func newSink(path string, out Output) *sink {
	stdout := out.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &sink{path: path, stdout: stdout}
}

func (s *sink) open() error {
	out := s.stdout
	if s.path != "" && s.path != "-" {
		file, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		s.file = file
		out = file
	}

	s.w = bufio.NewWriter(out)

	return nil
}

func (s *sink) writeLine(line string) error {
	if s.w == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeJSON writes v indented by four spaces.
func (s *sink) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return s.writeLine(string(data))
}

func (s *sink) close() error {
	if s.w == nil {
		return nil
	}

	err := s.w.Flush()
	if s.file != nil {
		if closeErr := s.file.Close(); err == nil {
			err = closeErr
		}
	}
	s.w, s.file = nil, nil

	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
