package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
)

const peopleCacheKey = "aggregations:people"

// cachedPeople fetches the person clusters, serving repeat calls from the
// shared cache so list_people followed by search_by_person costs one request.
func cachedPeople(ctx context.Context, provider *amazon.Provider, cacheStore *cache.Cache) ([]amazon.AggregationEntry, error) {
	if cached, found := cacheStore.Get(peopleCacheKey); found {
		return cached.([]amazon.AggregationEntry), nil
	}

	client, err := provider.Client()
	if err != nil {
		return nil, err
	}

	people, err := client.People(ctx)
	if err != nil {
		return nil, err
	}

	cacheStore.Set(peopleCacheKey, people, cache.DefaultExpiration)
	return people, nil
}

// resolveClusterID maps a person's display name to a cluster id, matching
// case-insensitively on the exact cluster name. Unmatched input is returned
// as-is so callers can pass a raw cluster id directly.
func resolveClusterID(people []amazon.AggregationEntry, nameOrID string) string {
	want := strings.ToLower(nameOrID)
	for _, p := range people {
		if strings.ToLower(p.SearchData.ClusterName) == want {
			return p.Value
		}
	}
	return nameOrID
}

// shapePeople flattens person clusters for output, sorted by photo count
// descending. Clusters the service has not named are labelled "(unnamed)".
func shapePeople(people []amazon.AggregationEntry) []map[string]interface{} {
	listing := make([]map[string]interface{}, 0, len(people))
	for _, p := range people {
		name := p.SearchData.ClusterName
		if name == "" {
			name = "(unnamed)"
		}
		listing = append(listing, map[string]interface{}{
			"name":      name,
			"clusterId": p.Value,
			"nodeId":    nullableString(p.SearchData.NodeID),
			"count":     p.Count,
		})
	}

	sort.Slice(listing, func(i, j int) bool {
		return listing[i]["count"].(int) > listing[j]["count"].(int)
	})

	return listing
}

func registerListPeople(s *server.MCPServer, provider *amazon.Provider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "list_people",
		Description: "List the people (face clusters) recognized in the photo library with their photo counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		people, err := cachedPeople(ctx, provider, cacheStore)
		if err != nil {
			return nil, err
		}

		listing := shapePeople(people)
		return makeMCPResult(map[string]interface{}{
			"total":  len(listing),
			"people": listing,
		})
	}

	s.AddTool(tool, handler)
}

func registerSearchByPerson(s *server.MCPServer, provider *amazon.Provider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "search_by_person",
		Description: "Find photos containing a recognized person, by name (as shown by list_people) or by cluster id.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"person": map[string]interface{}{
					"type":        "string",
					"description": "Person name or cluster id",
				},
				"maxResults": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results to return",
					"default":     defaultMaxResults,
				},
			},
			Required: []string{"person"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Person     string `json:"person"`
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

		if params.Person == "" {
			return nil, fmt.Errorf("person is required")
		}

		people, err := cachedPeople(ctx, provider, cacheStore)
		if err != nil {
			return nil, err
		}
		clusterID := resolveClusterID(people, params.Person)

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		max := clampMax(params.MaxResults)
		nodes, err := client.Search(ctx, personQuery(clusterID), max, 0)
		if err != nil {
			return nil, err
		}

		results := shapeNodes(nodes, max)
		return makeMCPResult(map[string]interface{}{
			"person":    params.Person,
			"clusterId": clusterID,
			"count":     len(results),
			"results":   results,
		})
	}

	s.AddTool(tool, handler)
}
