package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
)

const trashBatchSize = 100

// dupeGroup is the set of cached nodes sharing one MD5.
type dupeGroup struct {
	MD5   string
	Files []amazon.Node
}

// duplicateGroups partitions nodes by content hash and keeps only groups
// with more than one member. Nodes without a hash are ignored. Groups come
// back sorted by size descending, then hash, for deterministic output.
func duplicateGroups(nodes []amazon.Node) []dupeGroup {
	byHash := make(map[string][]amazon.Node)
	for _, n := range nodes {
		md5, ok := n.MD5()
		if !ok {
			continue
		}
		byHash[md5] = append(byHash[md5], n)
	}

	var groups []dupeGroup
	for md5, files := range byHash {
		if len(files) > 1 {
			groups = append(groups, dupeGroup{MD5: md5, Files: files})
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Files) != len(groups[j].Files) {
			return len(groups[i].Files) > len(groups[j].Files)
		}
		return groups[i].MD5 < groups[j].MD5
	})

	return groups
}

// hasAnyMD5 reports whether at least one cached node carries a content hash.
// A store refreshed from a library that has them will; an empty or stale
// store will not, and the tools report that as a data-shape error.
func hasAnyMD5(nodes []amazon.Node) bool {
	for _, n := range nodes {
		if _, ok := n.MD5(); ok {
			return true
		}
	}
	return false
}

// sortForDisplay orders a group's files by creation date ascending with
// missing dates FIRST (they render as empty). Keep-selection uses the
// opposite null placement; see sortForKeep.
func sortForDisplay(files []amazon.Node) []amazon.Node {
	sorted := append([]amazon.Node(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		an, bn := a.CreatedDate == nil, b.CreatedDate == nil
		switch {
		case an && bn:
			return a.ID < b.ID
		case an:
			return true
		case bn:
			return false
		case !a.CreatedDate.Equal(*b.CreatedDate):
			return a.CreatedDate.Before(*b.CreatedDate)
		default:
			return a.ID < b.ID
		}
	})
	return sorted
}

// sortForKeep orders a group's files by creation date ascending with missing
// dates LAST, so a file with an unknown date is never chosen as the original
// over one with a known date.
func sortForKeep(files []amazon.Node) []amazon.Node {
	sorted := append([]amazon.Node(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		an, bn := a.CreatedDate == nil, b.CreatedDate == nil
		switch {
		case an && bn:
			return a.ID < b.ID
		case an:
			return false
		case bn:
			return true
		case !a.CreatedDate.Equal(*b.CreatedDate):
			return a.CreatedDate.Before(*b.CreatedDate)
		default:
			return a.ID < b.ID
		}
	})
	return sorted
}

// planKeep designates the earliest-created file as kept and the rest as
// removable.
func planKeep(files []amazon.Node) (keep amazon.Node, trash []amazon.Node) {
	sorted := sortForKeep(files)
	return sorted[0], sorted[1:]
}

// batchIDs splits ids into slices of at most size elements.
func batchIDs(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

// findDuplicates tool
func registerFindDuplicates(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "find_duplicates",
		Description: "Find exact duplicate files in the library by MD5 hash using the local metadata store. Read-only analysis.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"maxGroups": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum duplicate groups to return",
					"default":     50,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxGroups int `json:"maxGroups"`
		}

		// Set defaults
		params.MaxGroups = 50

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		store, err := provider.Store()
		if err != nil {
			return nil, err
		}

		nodes, err := store.All()
		if err != nil {
			return nil, err
		}

		if len(nodes) > 0 && !hasAnyMD5(nodes) {
			return makeMCPResult(map[string]interface{}{
				"error": "no md5 data in the local store; run refresh_library first",
			})
		}

		groups := duplicateGroups(nodes)
		if len(groups) == 0 {
			return makeMCPResult(map[string]interface{}{
				"total_duplicate_files": 0,
				"removable_copies":      0,
				"groups":                []interface{}{},
			})
		}

		totalFiles := 0
		for _, g := range groups {
			totalFiles += len(g.Files)
		}

		shown := groups
		if len(shown) > params.MaxGroups {
			shown = shown[:params.MaxGroups]
		}

		groupListings := make([]map[string]interface{}, 0, len(shown))
		for _, g := range shown {
			files := make([]map[string]interface{}, 0, len(g.Files))
			for _, f := range sortForDisplay(g.Files) {
				row := map[string]interface{}{
					"id":          f.ID,
					"name":        f.Name,
					"folder":      nullableString(f.ParentFolder),
					"createdDate": formatDate(f.CreatedDate),
					"size":        nil,
				}
				if size, ok := f.Size(); ok {
					row["size"] = size
				}
				files = append(files, row)
			}
			groupListings = append(groupListings, map[string]interface{}{
				"md5":   g.MD5,
				"count": len(g.Files),
				"files": files,
			})
		}

		return makeMCPResult(map[string]interface{}{
			"total_duplicate_files": totalFiles,
			"removable_copies":      totalFiles - len(groups),
			"total_groups":          len(groups),
			"groups_shown":          len(groupListings),
			"groups":                groupListings,
		})
	}

	s.AddTool(tool, handler)
}

// trashFunc issues one remote trash call for a batch of node ids.
type trashFunc func(ctx context.Context, ids []string) error

// processDuplicateTrash computes the keep/trash plan over nodes, optionally
// restricted to md5Hashes, and either previews it (dryRun) or executes it
// through trash, one batch per call. The dry-run path never invokes trash.
func processDuplicateTrash(ctx context.Context, nodes []amazon.Node, md5Hashes []string, dryRun bool, trash trashFunc) (map[string]interface{}, error) {
	if len(nodes) > 0 && !hasAnyMD5(nodes) {
		return map[string]interface{}{
			"error": "no md5 data in the local store; run refresh_library first",
		}, nil
	}

	groups := duplicateGroups(nodes)
	if md5Hashes != nil {
		requested := make(map[string]bool, len(md5Hashes))
		for _, h := range md5Hashes {
			requested[h] = true
		}
		filtered := groups[:0]
		for _, g := range groups {
			if requested[g.MD5] {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}

	action := "trashed"
	if dryRun {
		action = "dry_run"
	}

	if len(groups) == 0 {
		return map[string]interface{}{
			"action":           action,
			"groups_processed": 0,
			"files_kept":       0,
			"files_trashed":    0,
			"message":          "No duplicates found to process.",
		}, nil
	}

	var trashNodes []amazon.Node
	kept := 0
	for _, g := range groups {
		_, removable := planKeep(g.Files)
		kept++
		trashNodes = append(trashNodes, removable...)
	}

	result := map[string]interface{}{
		"action":           action,
		"groups_processed": len(groups),
		"files_kept":       kept,
		"files_trashed":    len(trashNodes),
	}

	if dryRun {
		sampleSize := 10
		if len(trashNodes) < sampleSize {
			sampleSize = len(trashNodes)
		}
		sample := make([]map[string]interface{}, 0, sampleSize)
		for _, n := range trashNodes[:sampleSize] {
			row := map[string]interface{}{"id": n.ID, "name": n.Name}
			if md5, ok := n.MD5(); ok {
				row["md5"] = md5
			}
			sample = append(sample, row)
		}
		result["sample_trashed"] = sample
		result["message"] = fmt.Sprintf(
			"Would trash %d duplicate copies across %d groups. Set dryRun=false to execute.",
			len(trashNodes), len(groups))
		return result, nil
	}

	trashIDs := make([]string, len(trashNodes))
	for i, n := range trashNodes {
		trashIDs[i] = n.ID
	}

	for _, batch := range batchIDs(trashIDs, trashBatchSize) {
		if err := trash(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to trash batch: %w", err)
		}
	}

	result["message"] = fmt.Sprintf(
		"Trashed %d duplicate copies. Items are recoverable from trash for 30 days.",
		len(trashIDs))

	return result, nil
}

// trashDuplicates tool
func registerTrashDuplicates(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "trash_duplicates",
		Description: "Trash duplicate copies, keeping the earliest-created file of each MD5 group. Defaults to a dry run; items trashed for real stay recoverable for 30 days.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"md5Hashes": map[string]interface{}{
					"type":        "array",
					"description": "Specific MD5 hashes to process; all duplicates when omitted",
					"items":       map[string]interface{}{"type": "string"},
				},
				"dryRun": map[string]interface{}{
					"type":        "boolean",
					"description": "Preview only, no remote calls",
					"default":     true,
				},
			},
		},
	}

	s.AddTool(tool, trashDuplicatesHandler(provider))
}

// trashDuplicatesHandler builds the trash_duplicates handler. The remote
// client is only constructed when a batch actually has to be trashed, so a
// dry run (the default when dryRun is absent) issues no remote calls.
func trashDuplicatesHandler(provider *amazon.Provider) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MD5Hashes []string `json:"md5Hashes"`
			DryRun    bool     `json:"dryRun"`
		}

		// Set defaults
		params.DryRun = true

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		store, err := provider.Store()
		if err != nil {
			return nil, err
		}

		nodes, err := store.All()
		if err != nil {
			return nil, err
		}

		trash := func(ctx context.Context, ids []string) error {
			client, err := provider.Client()
			if err != nil {
				return err
			}
			return client.Trash(ctx, ids)
		}

		result, err := processDuplicateTrash(ctx, nodes, params.MD5Hashes, params.DryRun, trash)
		if err != nil {
			return nil, err
		}
		return makeMCPResult(result)
	}
}
