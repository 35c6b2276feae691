package tools

import (
	"fmt"
	"strings"
)

const (
	defaultMaxResults = 25
	hardMaxResults    = 200
)

// clampMax normalizes a caller-supplied maximum: zero/negative falls back to
// the default, and nothing exceeds the 200-result hard cap.
func clampMax(requested int) int {
	if requested <= 0 {
		return defaultMaxResults
	}
	if requested > hardMaxResults {
		return hardMaxResults
	}
	return requested
}

// dateQuery assembles a filter-grammar query for a date search. Month and
// day terms are omitted when zero; a day without a month is meaningless in
// the filter grammar and is dropped.
func dateQuery(year, month, day int, mediaType string) string {
	parts := []string{
		fmt.Sprintf("type:(%s)", mediaType),
		fmt.Sprintf("timeYear:(%d)", year),
	}
	if month > 0 {
		parts = append(parts, fmt.Sprintf("timeMonth:(%d)", month))
		if day > 0 {
			parts = append(parts, fmt.Sprintf("timeDay:(%d)", day))
		}
	}
	return strings.Join(parts, " ")
}

// thingsQuery assembles a filter-grammar query for a things search. The
// things expression ("beach", "dog AND park") is passed through verbatim.
func thingsQuery(things, mediaType string) string {
	return fmt.Sprintf("type:(%s) things:(%s)", mediaType, things)
}

// personQuery assembles a filter-grammar query for a person search by
// cluster id.
func personQuery(clusterID string) string {
	return fmt.Sprintf("type:(PHOTOS) clusterId:(%s)", clusterID)
}
