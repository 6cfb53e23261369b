package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/entity"
)

// DefaultMaxFileBytes caps how much of one document is read.
const DefaultMaxFileBytes = 4 << 20

// DirectoryExtractor reads text documents plus the extraction sidecar files of a directory.
type DirectoryExtractor struct {
	logger       *slog.Logger
	maxFileBytes int64
}

func NewDirectoryExtractor(logger *slog.Logger) *DirectoryExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryExtractor{logger: logger, maxFileBytes: DefaultMaxFileBytes}
}

// Extract walks dir for *.txt/*.md documents and reads extracted.json and keyvalues.json
// from its root. A missing directory is a precondition failure; an empty one yields an empty set.
func (e *DirectoryExtractor) Extract(ctx context.Context, dir, correctionContext string) (entity.DocumentSet, error) {
	start := time.Now()
	info, err := os.Stat(dir)
	if err != nil {
		return entity.DocumentSet{}, common.PreconditionError(fmt.Sprintf("documents directory %s not readable", dir), err)
	}
	if !info.IsDir() {
		return entity.DocumentSet{}, common.PreconditionError(fmt.Sprintf("%s is not a directory", dir), nil)
	}
	if correctionContext != "" {
		e.logger.Info("extract.correction_context", "dir", dir, "chars", len(correctionContext))
	}

	var set entity.DocumentSet
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			e.logger.Warn("extract.walk_error", "path", path, "err", walkErr)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := constants.DocumentExtensions[constants.NormalizeExt(filepath.Ext(path))]; !ok {
			return nil
		}
		doc, err := e.readDocument(dir, path)
		if err != nil {
			e.logger.Warn("extract.document_failed", "path", path, "err", err)
			return nil
		}
		set.Documents = append(set.Documents, doc)
		return nil
	})
	if err != nil {
		return entity.DocumentSet{}, err
	}
	sort.Slice(set.Documents, func(i, j int) bool { return set.Documents[i].Name < set.Documents[j].Name })

	if set.Extracted, err = readExtracted(filepath.Join(dir, constants.ExtractedFieldsFile)); err != nil {
		return entity.DocumentSet{}, err
	}
	if set.KeyValues, err = readKeyValues(filepath.Join(dir, constants.KeyValuesFile)); err != nil {
		return entity.DocumentSet{}, err
	}
	if set.IsEmpty() {
		e.logger.Warn("extract.empty", "dir", dir)
	}

	e.logger.Info("extract.done",
		"dir", dir,
		"documents", len(set.Documents),
		"extracted", len(set.Extracted),
		"key_values", len(set.KeyValues),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return set, nil
}

func (e *DirectoryExtractor) readDocument(root, path string) (entity.SourceDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.SourceDocument{}, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(f, e.maxFileBytes)); err != nil {
		return entity.SourceDocument{}, err
	}
	name, err := filepath.Rel(root, path)
	if err != nil {
		name = filepath.Base(path)
	}
	return entity.SourceDocument{Name: filepath.ToSlash(name), Text: Normalize(buf.String())}, nil
}

// readExtracted accepts {"key": {"value": ...}} and flat {"key": value} entries.
func readExtracted(path string) (map[string]entity.ExtractedField, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]entity.ExtractedField{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, common.NewAppError("EXTRACTED_INVALID", fmt.Sprintf("decode %s", path), err)
	}
	out := make(map[string]entity.ExtractedField, len(raw))
	for key, msg := range raw {
		var field entity.ExtractedField
		if bytes.HasPrefix(bytes.TrimSpace(msg), []byte("{")) {
			if err := json.Unmarshal(msg, &field); err != nil {
				return nil, common.NewAppError("EXTRACTED_INVALID", fmt.Sprintf("decode %s entry %q", path, key), err)
			}
		} else {
			field.Value = scalar(msg)
		}
		field.SourceID = key
		field.Value = strings.TrimSpace(field.Value)
		if field.Value == "" {
			continue
		}
		out[key] = field
	}
	return out, nil
}

// readKeyValues accepts a list of {"key","value"} objects or a flat object.
func readKeyValues(path string) ([]entity.KeyValue, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var kvs []entity.KeyValue
		if err := json.Unmarshal(trimmed, &kvs); err != nil {
			return nil, common.NewAppError("KEYVALUES_INVALID", fmt.Sprintf("decode %s", path), err)
		}
		return kvs, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, common.NewAppError("KEYVALUES_INVALID", fmt.Sprintf("decode %s", path), err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kvs := make([]entity.KeyValue, 0, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(scalar(raw[k])); v != "" {
			kvs = append(kvs, entity.KeyValue{Key: k, Value: v})
		}
	}
	return kvs, nil
}

// scalar renders a JSON string, number or bool as text.
func scalar(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(msg, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
