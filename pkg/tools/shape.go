package tools

import (
	"time"

	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
)

// shapeNodes converts client results into a size-bounded, JSON-safe slice of
// mappings: rows are deduplicated by id (the upstream cache can return the
// same node more than once), truncated to max, and every absent
// timestamp/hash/size becomes an explicit null. Never returns nil.
func shapeNodes(nodes []amazon.Node, max int) []map[string]interface{} {
	shaped := make([]map[string]interface{}, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))

	for _, n := range nodes {
		if n.ID != "" {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
		}
		if len(shaped) >= max {
			break
		}
		shaped = append(shaped, nodeToMap(n))
	}

	return shaped
}

// nodeToMap flattens one node into a JSON-safe mapping. Fields the service
// did not supply are present with null values rather than omitted, so
// callers can tell "unknown" from "missing column".
func nodeToMap(n amazon.Node) map[string]interface{} {
	row := map[string]interface{}{
		"id":           n.ID,
		"name":         n.Name,
		"kind":         n.Kind,
		"createdDate":  formatDate(n.CreatedDate),
		"modifiedDate": formatDate(n.ModifiedDate),
		"folder":       nullableString(n.ParentFolder),
		"md5":          nil,
		"size":         nil,
		"extension":    nil,
		"contentType":  nil,
		"contentDate":  nil,
	}

	if md5, ok := n.MD5(); ok {
		row["md5"] = md5
	}
	if size, ok := n.Size(); ok {
		row["size"] = size
	}
	if cp := n.ContentProperties; cp != nil {
		if cp.Extension != "" {
			row["extension"] = cp.Extension
		}
		if cp.ContentType != "" {
			row["contentType"] = cp.ContentType
		}
		row["contentDate"] = formatDate(cp.ContentDate)
		if cp.Image != nil {
			row["width"] = cp.Image.Width
			row["height"] = cp.Image.Height
		}
	}

	return row
}

// formatDate renders a timestamp as RFC3339, or nil when absent.
func formatDate(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
