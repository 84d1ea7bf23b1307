package format

import (
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/domain"
)

// ParseAttributes decodes a product's attribute source into name/value pairs.
// Structured data and text encodings are both accepted; text that does not
// decode is logged and yields an empty slice. Arrays of {name|key|label,
// value} objects and plain objects are understood; object pairs keep document
// order.
func ParseAttributes(src domain.AttributeSource, log logrus.FieldLogger) []domain.Attribute {
	var doc gjson.Result
	switch s := src.(type) {
	case nil:
		return []domain.Attribute{}
	case domain.RawAttributes:
		doc = gjson.ParseBytes(s)
	case domain.EncodedAttributes:
		if !gjson.Valid(string(s)) {
			if log != nil {
				log.WithField("attributes", truncate(string(s), 64)).Warn("failed to decode product attributes")
			}
			return []domain.Attribute{}
		}
		doc = gjson.Parse(string(s))
	}
	return pairs(doc)
}

func pairs(doc gjson.Result) []domain.Attribute {
	out := []domain.Attribute{}
	switch {
	case doc.IsArray():
		doc.ForEach(func(_, item gjson.Result) bool {
			if !item.IsObject() {
				return true
			}
			name := firstString(item, "name", "key", "label")
			if name == "" {
				return true
			}
			out = append(out, domain.Attribute{Name: name, Value: item.Get("value").String()})
			return true
		})
	case doc.IsObject():
		doc.ForEach(func(key, value gjson.Result) bool {
			out = append(out, domain.Attribute{Name: key.String(), Value: value.String()})
			return true
		})
	}
	return out
}

func firstString(item gjson.Result, fields ...string) string {
	for _, f := range fields {
		if v := item.Get(f); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
