package logging

import (
	"io"

	"go.uber.org/multierr"
)

// teeWriter writes every log line to all outputs and keeps writing to the
// remaining ones when an output fails.
type teeWriter struct {
	outputs []io.Writer
}

func newTeeWriter(outputs ...io.Writer) *teeWriter {
	return &teeWriter{outputs: outputs}
}

func (tw *teeWriter) Write(p []byte) (int, error) {
	var err error
	written := false
	for _, w := range tw.outputs {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		written = true
	}
	if !written {
		return 0, err
	}
	return len(p), err
}
