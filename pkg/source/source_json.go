package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// JSONSource reads a JSON export file: either a top-level array of objects
// or newline-delimited JSON. An optional root_path selects a nested array
// (e.g. "data.bookings") for exports that wrap their payload.
type JSONSource struct {
	name     string
	path     string
	rootPath string
}

func NewJSONSource(config map[string]interface{}) (*JSONSource, error) {
	name, ok := types.GetString(config, "name")
	if !ok {
		return nil, errors.New("name must be specified")
	}

	path, ok := types.GetString(config, "path")
	if !ok {
		return nil, errors.New("path must be specified")
	}

	rootPath, _ := types.GetString(config, "root_path")

	return &JSONSource{
		name:     name,
		path:     path,
		rootPath: rootPath,
	}, nil
}

func (s *JSONSource) Name() string {
	return s.name
}

func (s *JSONSource) Extract(ctx context.Context) ([]types.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file %s: %w", s.path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") || s.rootPath != "" {
		return s.extractArray(trimmed)
	}
	return s.extractLines(ctx, trimmed)
}

func (s *JSONSource) extractArray(data string) ([]types.Record, error) {
	root := gjson.Parse(data)
	if s.rootPath != "" {
		root = root.Get(s.rootPath)
		if !root.Exists() {
			return nil, fmt.Errorf("root_path %q not found in %s", s.rootPath, s.path)
		}
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("expected JSON array in %s, got %s", s.path, root.Type)
	}

	var records []types.Record
	var badRow error
	root.ForEach(func(_, item gjson.Result) bool {
		rec, err := toRecord(item)
		if err != nil {
			badRow = err
			return false
		}
		records = append(records, rec)
		return true
	})
	if badRow != nil {
		return nil, fmt.Errorf("invalid row in %s: %w", s.path, badRow)
	}
	return records, nil
}

func (s *JSONSource) extractLines(ctx context.Context, data string) ([]types.Record, error) {
	var records []types.Record
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if !gjson.Valid(text) {
			return nil, fmt.Errorf("invalid JSON on line %d of %s", line, s.path)
		}
		rec, err := toRecord(gjson.Parse(text))
		if err != nil {
			return nil, fmt.Errorf("line %d of %s: %w", line, s.path, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.path, err)
	}
	return records, nil
}

func toRecord(item gjson.Result) (types.Record, error) {
	if !item.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", item.Type)
	}
	obj, ok := item.Value().(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", item.Value())
	}
	return types.Record(obj), nil
}

func (s *JSONSource) Close() error {
	return nil
}
