package constants

import "strings"

// DocumentExtensions are the source document formats read from a documents directory.
var DocumentExtensions = map[string]struct{}{
	"txt": {},
	"md":  {},
}

// FormExtensions are the spreadsheet form formats the xlsx adapter can open.
var FormExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
}

// JobManifestSuffix marks files the daemon picks up from its inbox.
const JobManifestSuffix = ".job.yaml"

// Well-known files inside a documents directory.
const (
	ExtractedFieldsFile = "extracted.json"
	KeyValuesFile       = "keyvalues.json"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsFormExt reports whether ext names a spreadsheet form.
func IsFormExt(ext string) bool {
	_, ok := FormExtensions[NormalizeExt(ext)]
	return ok
}
