package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
)

// stageSingleFile copies path into a fresh temp directory so the upload
// walker sees exactly one file. The returned cleanup removes the directory.
func stageSingleFile(path string) (dir string, cleanup func(), err error) {
	dir, err = os.MkdirTemp("", "ap-upload-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	src, err := os.Open(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, filepath.Base(path)))
	if err != nil {
		cleanup()
		return "", nil, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		cleanup()
		return "", nil, err
	}

	return dir, cleanup, nil
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "amazon-photos")
	}
	return filepath.Join(home, "Downloads", "amazon-photos")
}

func registerUploadFile(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "upload_file",
		Description: "Upload a single local photo or video file to Amazon Photos.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filePath": map[string]interface{}{
					"type":        "string",
					"description": "Path to the local file to upload",
				},
			},
			Required: []string{"filePath"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			FilePath string `json:"filePath"`
		}

		argBytes, ok := request.Params.Arguments.([]byte)
		if !ok {
			argBytes, _ = json.Marshal(request.Params.Arguments)
		}
		if err := json.Unmarshal(argBytes, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}

		if params.FilePath == "" {
			return nil, fmt.Errorf("filePath is required")
		}

		info, err := os.Stat(params.FilePath)
		if err != nil {
			if os.IsNotExist(err) {
				return makeMCPResult(map[string]interface{}{
					"error": fmt.Sprintf("file not found: %s", params.FilePath),
				})
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return makeMCPResult(map[string]interface{}{
				"error": fmt.Sprintf("not a regular file: %s", params.FilePath),
			})
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		stagingDir, cleanup, err := stageSingleFile(params.FilePath)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		results, err := client.Upload(ctx, stagingDir)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("upload produced no result for %s", params.FilePath)
		}

		return makeMCPResult(map[string]interface{}{
			"file":   params.FilePath,
			"name":   results[0].Name,
			"nodeId": results[0].NodeID,
			"status": results[0].Status,
		})
	}

	s.AddTool(tool, handler)
}

func registerDownloadFiles(s *server.MCPServer, provider *amazon.Provider) {
	tool := mcp.Tool{
		Name:        "download_files",
		Description: "Download files from Amazon Photos by node id into a local directory.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"nodeIds": map[string]interface{}{
					"type":        "array",
					"description": "Node ids to download",
					"items":       map[string]interface{}{"type": "string"},
				},
				"outputDir": map[string]interface{}{
					"type":        "string",
					"description": "Destination directory; defaults to ~/Downloads/amazon-photos",
				},
			},
			Required: []string{"nodeIds"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			NodeIDs   []string `json:"nodeIds"`
			OutputDir string   `json:"outputDir"`
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

		outputDir := params.OutputDir
		if outputDir == "" {
			outputDir = defaultDownloadDir()
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}

		client, err := provider.Client()
		if err != nil {
			return nil, err
		}

		summary, err := client.Download(ctx, params.NodeIDs, outputDir)
		if err != nil {
			return nil, err
		}

		return makeMCPResult(map[string]interface{}{
			"outputDir":  summary.OutputDir,
			"downloaded": summary.Files,
			"failed":     summary.Failed,
		})
	}

	s.AddTool(tool, handler)
}
