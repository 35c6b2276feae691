package amazon

import "time"

// Node represents a file or folder in the Amazon Photos library.
type Node struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Kind              string             `json:"kind"` // FILE or FOLDER
	Status            string             `json:"status,omitempty"`
	CreatedDate       *time.Time         `json:"createdDate,omitempty"`
	ModifiedDate      *time.Time         `json:"modifiedDate,omitempty"`
	CreatedBy         string             `json:"createdBy,omitempty"`
	Parents           []string           `json:"parents,omitempty"`
	ParentFolder      string             `json:"parentFolder,omitempty"`
	ContentProperties *ContentProperties `json:"contentProperties,omitempty"`
}

// MD5 returns the content hash, or false when the node has none (folders,
// nodes the service has not yet hashed).
func (n Node) MD5() (string, bool) {
	if n.ContentProperties == nil || n.ContentProperties.MD5 == "" {
		return "", false
	}
	return n.ContentProperties.MD5, true
}

// Size returns the content size in bytes, or false when unknown.
func (n Node) Size() (int64, bool) {
	if n.ContentProperties == nil || n.ContentProperties.Size == nil {
		return 0, false
	}
	return *n.ContentProperties.Size, true
}

// ContentProperties holds per-file content metadata.
type ContentProperties struct {
	MD5         string     `json:"md5,omitempty"`
	Size        *int64     `json:"size,omitempty"`
	Extension   string     `json:"extension,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	ContentDate *time.Time `json:"contentDate,omitempty"`
	Image       *ImageInfo `json:"image,omitempty"`
	Video       *VideoInfo `json:"video,omitempty"`
}

// ImageInfo holds image dimensions extracted by the service.
type ImageInfo struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// VideoInfo holds video metadata extracted by the service.
type VideoInfo struct {
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Usage reports account storage consumption by media class.
type Usage struct {
	LastCalculated *time.Time  `json:"lastCalculated,omitempty"`
	Photo          UsageBucket `json:"photo"`
	Video          UsageBucket `json:"video"`
	Doc            UsageBucket `json:"doc"`
	Other          UsageBucket `json:"other"`
}

// UsageBucket is one media class within a usage report.
type UsageBucket struct {
	Total    UsageFigure `json:"total"`
	Billable UsageFigure `json:"billable"`
}

// UsageFigure is a byte/file-count pair.
type UsageFigure struct {
	Bytes int64 `json:"bytes"`
	Count int64 `json:"count"`
}

// AggregationEntry is one bucket of a precomputed library aggregation
// (a person cluster, a detected thing, a location, a year).
type AggregationEntry struct {
	Value      string     `json:"value"`
	Count      int        `json:"count"`
	SearchData SearchData `json:"searchData,omitempty"`
}

// SearchData carries the extra fields Amazon attaches to person clusters.
type SearchData struct {
	ClusterName string `json:"clusterName,omitempty"`
	NodeID      string `json:"nodeId,omitempty"`
}

// UploadResult reports the outcome for one uploaded file.
type UploadResult struct {
	Name   string `json:"name"`
	NodeID string `json:"nodeId,omitempty"`
	Status string `json:"status"`
}

// DownloadSummary reports the outcome of a batch download.
type DownloadSummary struct {
	OutputDir string   `json:"outputDir"`
	Files     []string `json:"files"`
	Failed    []string `json:"failed,omitempty"`
}

// searchResponse is the wire shape of the search endpoint.
type searchResponse struct {
	Count int    `json:"count"`
	Data  []Node `json:"data"`
}

// aggregationsResponse is the wire shape of an aggregation query.
type aggregationsResponse struct {
	Aggregations map[string][]AggregationEntry `json:"aggregations"`
}
