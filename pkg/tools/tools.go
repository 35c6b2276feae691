package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

// RegisterTools registers all tools with the MCP server
func RegisterTools(s *server.MCPServer, cfg *config.Config, provider *amazon.Provider, cacheStore *cache.Cache) {
	// Connection and account tools
	registerCheckConnection(s, provider)
	registerGetStorageUsage(s, provider)

	// Search tools
	registerSearchPhotos(s, provider)
	registerSearchByDate(s, provider)
	registerSearchByThings(s, provider)
	registerSearchByPerson(s, provider, cacheStore)
	registerListPeople(s, provider, cacheStore)

	// Browse tools
	registerGetPhotos(s, provider)
	registerGetVideos(s, provider)
	registerGetAggregations(s, provider, cacheStore)
	registerListFolders(s, provider)
	registerGetFolderTree(s, provider)

	// Trash tools
	registerTrashItems(s, provider)
	registerListTrashed(s, provider)
	registerRestoreItems(s, provider)

	// Duplicate tools
	registerFindDuplicates(s, provider)
	registerTrashDuplicates(s, provider)

	// Transfer tools
	registerUploadFile(s, provider)
	registerDownloadFiles(s, provider)

	// Maintenance tools
	registerRefreshLibrary(s, cfg, provider)
}

// makeMCPResult marshals data to JSON and wraps it in an MCP text result.
func makeMCPResult(data interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func registerCheckConnection(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "check_connection",
		Description: "Verify that the Amazon Photos session cookies are valid by fetching account storage usage.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider.Client()
		if err != nil {
			return makeMCPResult(map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			})
		}

		usage, err := client.Usage(ctx)
		if err != nil {
			return makeMCPResult(map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			})
		}

		return makeMCPResult(map[string]interface{}{
			"status":     "connected",
			"photoCount": usage.Photo.Total.Count,
			"videoCount": usage.Video.Total.Count,
		})
	}

	s.AddTool(tool, handler)
}

func registerGetStorageUsage(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "get_storage_usage",
		Description: "Get Amazon Photos storage usage broken down by photos, videos, documents, and other files.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		usage, err := client.Usage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get storage usage: %w", err)
		}

		return makeMCPResult(usage)
	}

	s.AddTool(tool, handler)
}

func registerSearchPhotos(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "search_photos",
		Description: "Search the library with a raw Amazon Photos filter expression, e.g. 'type:(PHOTOS) things:(beach)'.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Filter expression",
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
			Required: []string{"query"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Query      string `json:"query"`
			MaxResults int    `json:"maxResults"`
		}

		// Set defaults
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if params.Query == "" {
			return nil, fmt.Errorf("query is required")
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		max := clampMax(params.MaxResults)
		nodes, err := client.Search(ctx, params.Query, max, 0)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"query":   params.Query,
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerSearchByDate(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "search_by_date",
		Description: "Find photos or videos taken in a given year, optionally narrowed to a month and day.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Year, e.g. 2023",
				},
				"month": map[string]interface{}{
					"type":        "integer",
					"description": "Month 1-12",
				},
				"day": map[string]interface{}{
					"type":        "integer",
					"description": "Day of month 1-31; requires month",
				},
				"mediaType": map[string]interface{}{
					"type":        "string",
					"description": "PHOTOS or VIDEOS",
					"default":     "PHOTOS",
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
			Required: []string{"year"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Year       int    `json:"year"`
			Month      int    `json:"month"`
			Day        int    `json:"day"`
			MediaType  string `json:"mediaType"`
			MaxResults int    `json:"maxResults"`
		}

		// Set defaults
		params.MediaType = "PHOTOS"
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if params.Year == 0 {
			return nil, fmt.Errorf("year is required")
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		query := dateQuery(params.Year, params.Month, params.Day, params.MediaType)
		max := clampMax(params.MaxResults)
		nodes, err := client.Search(ctx, query, max, 0)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"query":   query,
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerSearchByThings(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "search_by_things",
		Description: "Find photos or videos by detected content label, e.g. 'beach', 'dog', 'sunset'. Use get_aggregations with category 'things' to discover available labels.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"things": map[string]interface{}{
					"type":        "string",
					"description": "Content label or expression, e.g. 'beach' or 'beach AND sunset'",
				},
				"mediaType": map[string]interface{}{
					"type":        "string",
					"description": "PHOTOS or VIDEOS",
					"default":     "PHOTOS",
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
			Required: []string{"things"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Things     string `json:"things"`
			MediaType  string `json:"mediaType"`
			MaxResults int    `json:"maxResults"`
		}

		// Set defaults
		params.MediaType = "PHOTOS"
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if params.Things == "" {
			return nil, fmt.Errorf("things is required")
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		query := thingsQuery(params.Things, params.MediaType)
		max := clampMax(params.MaxResults)
		nodes, err := client.Search(ctx, query, max, 0)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"query":   query,
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerGetPhotos(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "get_photos",
		Description: "List recent photos from the library.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxResults int `json:"maxResults"`
		}

		// Set defaults
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		max := clampMax(params.MaxResults)
		nodes, err := client.Photos(ctx, max)
		if err != nil {
			return nil, fmt.Errorf("failed to get photos: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerGetVideos(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "get_videos",
		Description: "List recent videos from the library.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxResults int `json:"maxResults"`
		}

		// Set defaults
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		max := clampMax(params.MaxResults)
		nodes, err := client.Videos(ctx, max)
		if err != nil {
			return nil, fmt.Errorf("failed to get videos: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerGetAggregations(s *server.MCPServer, provider *amazon.Provider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "get_aggregations",
		Description: "Get precomputed library aggregations: detected things, locations, people clusters, or a year/month time breakdown.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Aggregation category: 'things', 'location', 'people', 'allPeople', or 'all' for the time breakdown",
					"default":     "all",
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Category string `json:"category"`
		}

		// Set defaults
		params.Category = "all"

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		cacheKey := "aggregations:" + params.Category
		if cached, found := cacheStore.Get(cacheKey); found {
			log.Debug().Str("category", params.Category).Msg("Aggregations served from cache")
			return makeMCPResult(cached)
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		aggregations, err := client.Aggregations(ctx, params.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to get aggregations: %w", err)
		}

		cacheStore.Set(cacheKey, aggregations, cache.DefaultExpiration)
		return makeMCPResult(aggregations)
	}

	s.AddTool(tool, handler)
}

func registerListFolders(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "list_folders",
		Description: "List folders in the Amazon Photos drive.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		folders, err := client.Folders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}

		listing := make([]map[string]interface{}, 0, len(folders))
		for _, f := range folders {
			listing = append(listing, map[string]interface{}{
				"id":           f.ID,
				"name":         f.Name,
				"createdDate":  formatDate(f.CreatedDate),
				"modifiedDate": formatDate(f.ModifiedDate),
			})
		}

		return makeMCPResult(map[string]interface{}{
			"count":   len(listing),
			"folders": listing,
		})
	}

	s.AddTool(tool, handler)
}

func registerGetFolderTree(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "get_folder_tree",
		Description: "Render the folder hierarchy of the Amazon Photos drive as an indented tree.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		tree, err := client.FolderTree(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get folder tree: %w", err)
		}

		return mcp.NewToolResultText(tree), nil
	}

	s.AddTool(tool, handler)
}

func registerTrashItems(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "trash_items",
		Description: "Move items to the Amazon Photos trash by node id. Trashed items are recoverable for 30 days.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"nodeIds": map[string]interface{}{
					"type":        "array",
					"description": "Node ids to trash",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"nodeIds"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			NodeIDs []string `json:"nodeIds"`
		}

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if len(params.NodeIDs) == 0 {
			return nil, fmt.Errorf("nodeIds is required")
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		if err := client.Trash(ctx, params.NodeIDs); err != nil {
			return nil, fmt.Errorf("failed to trash items: %w", err)
		}

		return makeMCPResult(map[string]interface{}{
			"status":  "trashed",
			"count":   len(params.NodeIDs),
			"message": fmt.Sprintf("Moved %d items to trash. Recoverable for 30 days.", len(params.NodeIDs)),
		})
	}

	s.AddTool(tool, handler)
}

func registerListTrashed(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "list_trashed",
		Description: "List items currently in the Amazon Photos trash.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxResults int `json:"maxResults"`
		}

		// Set defaults
		params.MaxResults = defaultMaxResults

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		max := clampMax(params.MaxResults)
		nodes, err := client.Trashed(ctx, max)
		if err != nil {
			return nil, fmt.Errorf("failed to list trash: %w", err)
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"count":   len(results),
			"results": results,
		})
	}

	s.AddTool(tool, handler)
}

func registerRestoreItems(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "restore_items",
		Description: "Restore items from the Amazon Photos trash by node id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"nodeIds": map[string]interface{}{
					"type":        "array",
					"description": "Node ids to restore",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"nodeIds"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			NodeIDs []string `json:"nodeIds"`
		}

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if len(params.NodeIDs) == 0 {
			return nil, fmt.Errorf("nodeIds is required")
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		if err := client.Restore(ctx, params.NodeIDs); err != nil {
			return nil, fmt.Errorf("failed to restore items: %w", err)
		}

		return makeMCPResult(map[string]interface{}{
			"status": "restored",
			"count":  len(params.NodeIDs),
		})
	}

	s.AddTool(tool, handler)
}

func registerRefreshLibrary(s *server.MCPServer, cfg *config.Config, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "refresh_library",
		Description: "Refresh the local metadata store from Amazon Photos. Required before duplicate detection on a new or stale store; can take a while for large libraries.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		store, err := provider.Store()
		if err != nil {
			return nil, err
		}

		total, err := client.RefreshStore(ctx, store, cfg.RefreshPageSize)
		if err != nil {
			return nil, fmt.Errorf("refresh failed: %w", err)
		}

		stored, err := store.Count()
		if err != nil {
			return nil, err
		}

		log.Info().Int("fetched", total).Int("stored", stored).Msg("Library metadata refreshed")

		return makeMCPResult(map[string]interface{}{
			"status":       "refreshed",
			"filesFetched": total,
			"filesStored":  stored,
		})
	}

	s.AddTool(tool, handler)
}
