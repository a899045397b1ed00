package level

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExitCode is the converter's process exit status.
type ExitCode int

const (
	ExitOK              ExitCode = 0
	ExitJSONError       ExitCode = 1
	ExitConversionError ExitCode = 2
	ExitFileError       ExitCode = 3
	ExitGamePathError   ExitCode = 4
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitJSONError:
		return "json error"
	case ExitConversionError:
		return "conversion error"
	case ExitFileError:
		return "file error"
	case ExitGamePathError:
		return "game path error"
	default:
		return fmt.Sprintf("exit code %d", int(c))
	}
}

// Output is what the converter printed.
type Output struct {
	Stdout string
	Stderr string
}

// Text joins the non-empty streams.
func (o Output) Text() string {
	var parts []string
	for _, s := range []string{strings.TrimSpace(o.Stdout), strings.TrimSpace(o.Stderr)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// ConverterError is a converter run that exited non-zero.
type ConverterError struct {
	Code   ExitCode
	Output Output
}

func (e *ConverterError) Error() string {
	if text := e.Output.Text(); text != "" {
		return fmt.Sprintf("converter: %s: %s", e.Code, text)
	}
	return fmt.Sprintf("converter: %s", e.Code)
}

func (e *ConverterError) Unwrap() error { return ErrConversion }

// Converter turns a .layout into a .layout.json next to it, or the reverse, depending on
// the extension of path.
type Converter interface {
	Convert(ctx context.Context, path string) (Output, error)
}

// ExecConverter runs the converter executable.
type ExecConverter struct {
	Path string
}

func NewExecConverter(path string) *ExecConverter {
	return &ExecConverter{Path: path}
}

func (c *ExecConverter) Convert(ctx context.Context, path string) (Output, error) {
	cmd := exec.CommandContext(ctx, c.Path, path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &ConverterError{Code: ExitCode(exitErr.ExitCode()), Output: out}
		}
		return out, fmt.Errorf("run converter: %w", err)
	}
	return out, nil
}

// checkArg is not a file, so a working converter answers it with ExitFileError.
const checkArg = "test"

// Check makes sure the converter runs and can find the game.
func Check(ctx context.Context, c Converter) error {
	_, err := c.Convert(ctx, checkArg)
	var convErr *ConverterError
	switch {
	case err == nil:
		return fmt.Errorf("converter accepted %q as a level", checkArg)
	case errors.As(err, &convErr) && convErr.Code == ExitFileError:
		return nil
	default:
		return err
	}
}
