package level

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// script writes an executable shell script standing in for the converter.
func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "converter")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecConverter(t *testing.T) {
	ctx := context.Background()

	out, err := NewExecConverter(script(t, `echo "converted $1"`)).Convert(ctx, "lvl.layout")
	if err != nil {
		t.Fatal(err)
	}
	if out.Stdout != "converted lvl.layout\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}

	_, err = NewExecConverter(script(t, `echo "bad json" >&2; exit 1`)).Convert(ctx, "lvl.layout.json")
	var convErr *ConverterError
	if !errors.As(err, &convErr) || convErr.Code != ExitJSONError {
		t.Fatalf("expected a json error, got %v", err)
	}
	if convErr.Output.Text() != "bad json" {
		t.Errorf("output = %q", convErr.Output.Text())
	}

	if _, err := NewExecConverter(filepath.Join(t.TempDir(), "missing")).Convert(ctx, "x"); err == nil || errors.As(err, &convErr) {
		t.Errorf("missing binary: got %v", err)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantCode ExitCode
	}{
		{"working", "exit 3", false, 0},
		{"game not found", `echo "game path not found"; exit 4`, true, ExitGamePathError},
		{"accepts anything", "exit 0", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(context.Background(), NewExecConverter(script(t, tt.body)))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() = %v, wantErr %v", err, tt.wantErr)
			}
			var convErr *ConverterError
			if tt.wantCode != 0 && (!errors.As(err, &convErr) || convErr.Code != tt.wantCode) {
				t.Errorf("Check() = %v, want code %v", err, tt.wantCode)
			}
		})
	}
}

func TestMarshalDepthLimited(t *testing.T) {
	v := map[string]any{"a": map[string]any{"b": map[string]any{"c": []int{1, 2}}}}
	got, err := MarshalDepthLimited(v)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"a\": {\n    \"b\": { \"c\": [ 1, 2 ] }\n  }\n}"
	if string(got) != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}
