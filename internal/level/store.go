package level

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/polyeditor/polyeditor/backend-go/internal/document"
)

var (
	ErrNotFound      = errors.New("level not found")
	ErrInvalidName   = errors.New("invalid level name")
	ErrInvalidLayout = errors.New("invalid layout")
	ErrConversion    = errors.New("conversion failed")
)

const (
	JSONExtension   = ".layout.json"
	LayoutExtension = ".layout"
	BackupExtension = ".layout.backup"
)

var fileRegex = regexp.MustCompile(`^(.+)(\.layout\.json|\.layout)$`)

// Store reads and writes the levels of one directory. The game's binary .layout is the
// source of truth; the converter keeps a .layout.json beside it that the editor edits.
type Store struct {
	dir  string
	conv Converter
}

func NewStore(dir string, conv Converter) *Store {
	return &Store{dir: dir, conv: conv}
}

func (s *Store) Dir() string { return s.dir }

// List returns the level names in the directory, sorted, each once.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read level dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if m := fileRegex.FindStringSubmatch(e.Name()); m != nil {
			names = append(names, m[1])
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Load reads a level, converting the binary layout first when it is newer than its json
// or has none.
func (s *Store) Load(ctx context.Context, name string) (*document.Layout, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	layoutPath := s.path(name, LayoutExtension)
	jsonPath := s.path(name, JSONExtension)

	layoutInfo, layoutErr := os.Stat(layoutPath)
	jsonInfo, jsonErr := os.Stat(jsonPath)
	if layoutErr == nil && (jsonErr != nil || layoutInfo.ModTime().After(jsonInfo.ModTime())) {
		slog.Info("converting level", "level", name)
		if _, err := s.conv.Convert(ctx, layoutPath); err != nil {
			return nil, fmt.Errorf("convert %s: %w", filepath.Base(layoutPath), err)
		}
	}

	data, err := os.ReadFile(jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}

	l, err := document.Parse(data)
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, col := position(data, syntaxErr.Offset)
			return nil, fmt.Errorf("%w: invalid syntax in line %d, column %d of %s", ErrInvalidLayout, line, col, filepath.Base(jsonPath))
		}
		return nil, fmt.Errorf("%w: %s is either incomplete or not actually a level: %v", ErrInvalidLayout, filepath.Base(jsonPath), err)
	}
	return l, nil
}

// SaveResult describes what the converter did with a saved level.
type SaveResult struct {
	// Changed is false when the converter found nothing new to apply.
	Changed bool `json:"changed"`
	// Backup is true when the original .layout was copied aside first.
	Backup bool `json:"backup"`
	Output string `json:"output,omitempty"`
}

// Save writes the level's json and has the converter apply it to the binary layout.
func (s *Store) Save(ctx context.Context, name string, l *document.Layout) (SaveResult, error) {
	if err := validateName(name); err != nil {
		return SaveResult{}, err
	}
	data, err := MarshalDepthLimited(l)
	if err != nil {
		return SaveResult{}, fmt.Errorf("marshal layout: %w", err)
	}
	jsonPath := s.path(name, JSONExtension)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return SaveResult{}, fmt.Errorf("write level: %w", err)
	}

	out, err := s.conv.Convert(ctx, jsonPath)
	if err != nil {
		return SaveResult{}, fmt.Errorf("apply %s: %w", filepath.Base(jsonPath), err)
	}
	stdout := strings.TrimSpace(out.Stdout)
	res := SaveResult{
		Changed: stdout != "",
		Backup:  strings.Contains(out.Stdout, "backup"),
		Output:  stdout,
	}
	slog.Info("level saved", "level", name, "changed", res.Changed, "backup", res.Backup)
	return res, nil
}

func (s *Store) path(name, ext string) string {
	return filepath.Join(s.dir, name+ext)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// position turns a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	offset = min(max(offset, 0), int64(len(data)))
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - (bytes.LastIndexByte(before, '\n') + 1)
	return line, max(col, 1)
}
