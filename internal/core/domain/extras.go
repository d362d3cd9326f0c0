package domain

// Extras carries values derived while processing a single record between
// processors: a file processor records what it extracted, a metadata
// processor reads those values as generator parameters. One Extras lives for
// exactly one record and is discarded after commit.
//
// Well-known keys:
//
//	extractedFiles: []string of file URLs accepted by a file processor,
//	appended under AddExtractedFile.
type Extras struct {
	values map[string]any
}

// ExtrasKeyExtractedFiles is the key under which file processors record the
// URLs they turned into file shadows.
const ExtrasKeyExtractedFiles = "extractedFiles"

// NewExtras creates an empty extras context.
func NewExtras() *Extras {
	return &Extras{values: make(map[string]any)}
}

// Set stores a value under key, replacing any previous value.
func (e *Extras) Set(key string, value any) {
	e.values[key] = value
}

// Get returns the value stored under key, and whether it was present.
func (e *Extras) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// GetString returns the string stored under key, or "" if absent or not a
// string.
func (e *Extras) GetString(key string) string {
	s, _ := e.values[key].(string)
	return s
}

// GetStrings returns the string slice stored under key, or nil.
func (e *Extras) GetStrings(key string) []string {
	s, _ := e.values[key].([]string)
	return s
}

// AddExtractedFile appends a URL to the extracted-files list.
func (e *Extras) AddExtractedFile(url string) {
	e.values[ExtrasKeyExtractedFiles] = append(e.GetStrings(ExtrasKeyExtractedFiles), url)
}

// ExtractedFiles returns the URLs recorded by file processors so far.
func (e *Extras) ExtractedFiles() []string {
	return e.GetStrings(ExtrasKeyExtractedFiles)
}
