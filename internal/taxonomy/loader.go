package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wichananm65/gift-finder/internal/logging"
)

// Document is the on-disk taxonomy shape:
//
//	clusters:
//	  home:
//	    label: Home
//	    sub_clusters:
//	      kitchen:
//	        label: Kitchen
//	        categories: [mugs, cookware]
type Document struct {
	Clusters map[string]ClusterDoc `json:"clusters" yaml:"clusters"`
}

type ClusterDoc struct {
	Label       string                   `json:"label" yaml:"label"`
	SubClusters map[string]SubClusterDoc `json:"sub_clusters" yaml:"sub_clusters"`
}

type SubClusterDoc struct {
	Label      string   `json:"label" yaml:"label"`
	Categories []string `json:"categories" yaml:"categories"`
}

// Parse decodes a taxonomy document. JSON input is detected by its leading
// brace; anything else is read as YAML.
func Parse(data []byte) (*Index, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode taxonomy json: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy yaml: %w", err)
	}
	return Build(doc), nil
}

// Load reads and parses the taxonomy file at path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(data)
}

// LoadOrEmpty loads the taxonomy and degrades to an empty index on failure.
func LoadOrEmpty(path string, logger *zap.Logger) *Index {
	logger = logging.OrNop(logger)
	idx, err := Load(path)
	if err != nil {
		logger.Error("taxonomy unavailable, facets disabled", zap.String("path", path), zap.Error(err))
		return Empty()
	}
	logger.Info("taxonomy loaded", zap.String("path", path), zap.Int("topics", len(idx.topics)))
	return idx
}
