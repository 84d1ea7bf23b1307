package format

import "strings"

// ImageResolver turns stored image references into URLs the browser can load.
type ImageResolver struct {
	UploadPrefix string
	Placeholder  string
}

// Resolve returns absolute http(s) URLs unchanged, the placeholder for an
// empty reference, and otherwise the reference joined onto the upload prefix.
func (r ImageResolver) Resolve(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return r.Placeholder
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}
	return strings.TrimRight(r.UploadPrefix, "/") + "/" + strings.TrimLeft(strings.TrimSpace(ref), "/")
}

// ResolveAll resolves every reference; an empty list yields the placeholder alone.
func (r ImageResolver) ResolveAll(refs []string) []string {
	if len(refs) == 0 {
		return []string{r.Placeholder}
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = r.Resolve(ref)
	}
	return out
}
