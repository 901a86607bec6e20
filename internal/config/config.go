package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"kdash-mock/internal/mock"
	"kdash-mock/internal/models"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings, read from the environment
type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	ClusterConfig string `envconfig:"CLUSTER_CONFIG" default:"k8s-configs/clusters.yaml"`
	DBPath        string `envconfig:"DB_PATH" default:"data/metrics.db"`

	// Mock clusters created when the cluster file does not exist
	MockClusters int `envconfig:"MOCK_CLUSTERS" default:"3"`
	// Seed for service port and endpoint node draws; 0 leaves them unseeded
	RandomSeed uint64 `envconfig:"RANDOM_SEED" default:"0"`

	CollectInterval  time.Duration `envconfig:"COLLECT_INTERVAL" default:"1m"`
	CleanupInterval  time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	HistoryRetention time.Duration `envconfig:"HISTORY_RETENTION" default:"24h"`
	StreamInterval   time.Duration `envconfig:"STREAM_INTERVAL" default:"5s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"auto"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if cfg.StreamInterval <= 0 || cfg.CollectInterval <= 0 || cfg.CleanupInterval <= 0 {
		return nil, errors.New("intervals must be positive")
	}
	return &cfg, nil
}

// LoadClusters reads the cluster list from a YAML file. A missing file yields
// mockFallback synthesized clusters instead
func LoadClusters(path string, mockFallback int) ([]models.ClusterConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().
			Str("path", path).
			Int("mock_clusters", mockFallback).
			Msg("cluster config not found, using mock clusters")
		return DefaultMockClusters(mockFallback), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster config: %w", err)
	}

	var file models.ClustersConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cluster config %s: %w", path, err)
	}

	if err := validateClusters(file.Clusters); err != nil {
		return nil, err
	}
	return file.Clusters, nil
}

// DefaultMockClusters returns n enabled mock clusters named mock-cluster-<i>
func DefaultMockClusters(n int) []models.ClusterConfig {
	clusters := make([]models.ClusterConfig, 0, max(n, 0))
	for i := range n {
		name := fmt.Sprintf("mock-cluster-%d", i)
		clusters = append(clusters, models.ClusterConfig{
			Name:        name,
			DisplayName: fmt.Sprintf("Mock Cluster %d", i),
			Mock:        true,
			Enabled:     true,
		})
	}
	return clusters
}

func validateClusters(clusters []models.ClusterConfig) error {
	seen := make(map[string]bool, len(clusters))
	for _, c := range clusters {
		if c.Name == "" {
			return errors.New("cluster entry without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate cluster name %q", c.Name)
		}
		seen[c.Name] = true

		if c.Mock {
			if _, err := mock.ClusterIndex(c.Name); err != nil {
				return fmt.Errorf("mock cluster %q: %w", c.Name, err)
			}
		}
	}
	return nil
}
