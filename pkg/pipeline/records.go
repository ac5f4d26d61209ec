package pipeline

import "github.com/codeready-toolchain/herald/pkg/extract"

// Record is an article or repository record as produced by a stage. Fields
// are whatever the model returned; title, url, snippet, content, source and
// topic are the ones the pipelines read.
type Record map[string]any

// Merge returns a new record with the keys of a overlaid by the keys of b.
func Merge(a, b Record) Record {
	out := make(Record, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// MergeByURL pairs every base record with the first update sharing its url
// and returns the merged pairs in base order. Base records without an update
// are left out.
func MergeByURL(base, updates []Record) []Record {
	var out []Record
	for _, b := range base {
		u := b.String("url")
		if u == "" {
			continue
		}
		for _, up := range updates {
			if up.String("url") == u {
				out = append(out, Merge(b, up))
				break
			}
		}
	}
	return out
}

// String returns the string value of key, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// extractRecords returns the JSON objects of the array found in text.
func extractRecords(text string) ([]Record, bool) {
	arr, ok := extract.Array(text)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out, true
}
