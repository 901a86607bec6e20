package services

import (
	"context"
	"fmt"

	"kdash-mock/internal/models"
)

// ClusterState is one observation of a cluster and the figures derived from it
type ClusterState struct {
	Config   models.ClusterConfig
	Snapshot models.ClusterSnapshot
	Pods     models.PodSummary
	Usage    Usage
}

// Observe takes a snapshot of an enabled cluster and summarizes it
func (s *KubernetesService) Observe(ctx context.Context, clusterName string) (ClusterState, error) {
	cfg, ok := s.GetConfig(clusterName)
	if !ok {
		return ClusterState{}, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterName)
	}

	snapshot, err := s.GetSnapshot(ctx, clusterName)
	if err != nil {
		return ClusterState{}, err
	}

	return ClusterState{
		Config:   cfg,
		Snapshot: snapshot,
		Pods:     SummarizePods(snapshot),
		Usage:    RequestedUsage(snapshot),
	}, nil
}

// EnabledClusters returns the names of enabled clusters in configuration order
func (s *KubernetesService) EnabledClusters() []string {
	var names []string
	for _, cfg := range s.configs {
		if cfg.Enabled {
			names = append(names, cfg.Name)
		}
	}
	return names
}
