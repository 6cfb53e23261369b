package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/form-filler/constants"
	"github.com/joseph-ayodele/form-filler/internal/common"
	"github.com/joseph-ayodele/form-filler/internal/pipeline"
)

// LoadJob parses a job manifest. Relative paths are resolved against the manifest's
// directory.
//
//	documents: ./bewerbung
//	form: ../forms/antrag.xlsx
//	reference: ../forms/antrag_sample.xlsx
//	output: ./antrag_filled.xlsx
func LoadJob(path string) (pipeline.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Job{}, common.PreconditionError(fmt.Sprintf("read manifest %s", path), err)
	}
	job, err := ParseJob(data)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	job.Documents = resolve(base, job.Documents)
	job.Form = resolve(base, job.Form)
	job.Reference = resolve(base, job.Reference)
	job.Output = resolve(base, job.Output)
	job.ReportDir = resolve(base, job.ReportDir)
	return job, nil
}

// ParseJob decodes a manifest and rejects unknown keys and missing inputs.
func ParseJob(data []byte) (pipeline.Job, error) {
	var job pipeline.Job
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil && !errors.Is(err, io.EOF) {
		return pipeline.Job{}, common.NewAppError("MANIFEST_INVALID", "manifest is not valid YAML", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	v := common.NewValidator().
		Field("documents", strings.TrimSpace(job.Documents), common.Required, common.MaxLength(maxPathLength)).
		Field("form", strings.TrimSpace(job.Form), common.Required, common.MaxLength(maxPathLength))
	if job.Form != "" {
		v.Field("form extension", constants.NormalizeExt(filepath.Ext(job.Form)), common.OneOf(formExtensions...))
	}
	if v.HasErrors() {
		return pipeline.Job{}, common.NewAppError("MANIFEST_INVALID", v.ErrorMessage(), common.ErrInvalidInput)
	}
	return job, nil
}

const maxPathLength = 4096

var formExtensions = []string{"xlsx", "xlsm", "json"}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ManifestResult is the per-manifest outcome of a scan.
type ManifestResult struct {
	Path string
	Job  pipeline.Job
	Err  string
}

// ScanStats summarizes an inbox scan.
type ScanStats struct {
	Scanned uint32
	Matched uint32
	Loaded  uint32
	Failed  uint32
}

// ScanManifests walks root, skipping hidden entries, and loads every job manifest.
// Unreadable manifests are reported per file and do not stop the walk.
func ScanManifests(root string) ([]ManifestResult, ScanStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ScanStats{}, common.NewAppError("VALIDATION_ERROR", "inbox root is required", common.ErrValidation)
	}

	var results []ManifestResult
	var stats ScanStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, ManifestResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsManifest(path, constants.JobManifestSuffix) {
			return nil
		}
		stats.Matched++

		job, err := LoadJob(path)
		if err != nil {
			results = append(results, ManifestResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, ManifestResult{Path: path, Job: job})
		stats.Loaded++
		return nil
	})
	if err != nil {
		return results, stats, common.PreconditionError(fmt.Sprintf("scan inbox %s", root), err)
	}
	return results, stats, nil
}
