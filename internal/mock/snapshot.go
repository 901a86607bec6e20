package mock

import (
	"fmt"
	"strconv"
	"strings"

	"kdash-mock/internal/models"

	"github.com/rs/zerolog/log"
)

// ParseError reports a cluster id without a trailing integer
type ParseError struct {
	ID  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cluster id %q has no trailing integer: %v", e.ID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ClusterIndex extracts the integer after the last "-" of a cluster id
func ClusterIndex(id string) (int, error) {
	token := id
	if i := strings.LastIndex(id, "-"); i >= 0 {
		token = id[i+1:]
	}
	index, err := strconv.Atoi(token)
	if err != nil {
		return 0, &ParseError{ID: id, Err: err}
	}
	return index, nil
}

// BuildSnapshot generates the full state of the referenced mock cluster as of now
func (g *Generator) BuildSnapshot(ref models.ClusterRef) (models.ClusterSnapshot, error) {
	index, err := ClusterIndex(ref.ID)
	if err != nil {
		return models.ClusterSnapshot{}, err
	}

	topo := g.AssembleTopology(index)
	snapshot := models.ClusterSnapshot{
		ID:             fmt.Sprintf("mock-cluster-%d", index),
		APIServerURL:   fmt.Sprintf("https://kube-%d.example.org", index),
		Nodes:          topo.Nodes,
		UnassignedPods: map[string]models.Pod{topo.Unassigned.Key(): topo.Unassigned},
		Services:       g.SynthesizeServices(topo.PodsByBaseName, topo.NodeNames),
	}

	log.Debug().
		Str("cluster", snapshot.ID).
		Int("nodes", len(snapshot.Nodes)).
		Int("services", len(snapshot.Services)).
		Msg("built mock snapshot")

	return snapshot, nil
}
