package types

// ExtractedInfo is the structured extraction result for one document.
// Data holds either parsed JSON (map[string]any or []any) or the raw reply text.
// When extraction could not run or the oracle failed, Data is nil and Error is set;
// the record is still emitted so coverage can be reported downstream.
type ExtractedInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Data  any    `json:"extracted_info"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the extraction produced data.
func (e ExtractedInfo) OK() bool {
	return e.Error == "" && e.Data != nil
}
