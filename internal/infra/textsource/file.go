// Package textsource implements the text surfaces a tagging batch operates
// on: files, standard streams and in-memory buffers.
package textsource

import (
	"context"
	"fmt"
	"io"
	"os"
)

// stdioName is the conventional CLI spelling for standard input or output.
const stdioName = "-"

// FileSource reads the text block from a file (or stdin) and writes the
// tagged result to a file (or stdout). An empty path means the standard
// stream.
type FileSource struct {
	inPath  string
	outPath string
	stdin   io.Reader
	stdout  io.Writer
}

// NewFileSource creates a source over the given input and output paths.
func NewFileSource(inPath, outPath string) *FileSource {
	return &FileSource{
		inPath:  inPath,
		outPath: outPath,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
}

// ReadSelection reads the whole input.
func (f *FileSource) ReadSelection(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.inPath == "" || f.inPath == stdioName {
		data, err := io.ReadAll(f.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(f.inPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.inPath, err)
	}
	return string(data), nil
}

// ReplaceSelection writes the tagged text to the configured output.
func (f *FileSource) ReplaceSelection(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.outPath == "" || f.outPath == stdioName {
		if _, err := io.WriteString(f.stdout, text); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(f.outPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.outPath, err)
	}
	return nil
}
