package mock

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"kdash-mock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterIndex(t *testing.T) {
	tests := []struct {
		id      string
		want    int
		wantErr bool
	}{
		{id: "mock-cluster-3", want: 3},
		{id: "mock-cluster-0", want: 0},
		{id: "17", want: 17},
		{id: "bad-id", wantErr: true},
		{id: "mock-cluster-", wantErr: true},
		{id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ClusterIndex(tt.id)
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.id, parseErr.ID)
				assert.True(t, errors.Is(err, strconv.ErrSyntax))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	gen, clk := newTestGenerator(bothPresent)

	snapshot, err := gen.BuildSnapshot(models.ClusterRef{ID: "mock-cluster-3"})
	require.NoError(t, err)
	assert.Equal(t, "mock-cluster-3", snapshot.ID)
	assert.Equal(t, "https://kube-3.example.org", snapshot.APIServerURL)
	assert.Len(t, snapshot.Nodes, 10)
	assert.Len(t, snapshot.Services, 8)
	require.Len(t, snapshot.UnassignedPods, 1)
	assert.Contains(t, snapshot.UnassignedPods, "default/logLady-11-3")

	addresses := 0
	for _, svc := range snapshot.Services {
		addresses += len(svc.Endpoint.Subsets[0].Addresses)
	}
	assert.Equal(t, 151, addresses)

	clk.SetTime(bothAway)
	snapshot, err = gen.BuildSnapshot(models.ClusterRef{ID: "mock-cluster-3"})
	require.NoError(t, err)
	assert.Len(t, snapshot.Nodes, 9)
	assert.Len(t, snapshot.UnassignedPods, 1)
}

func TestBuildSnapshotRealClock(t *testing.T) {
	snapshot, err := NewGenerator(nil, nil).BuildSnapshot(models.ClusterRef{ID: "mock-cluster-3"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(snapshot.Nodes), 9)
	assert.LessOrEqual(t, len(snapshot.Nodes), 10)
	assert.Len(t, snapshot.UnassignedPods, 1)
}

func TestBuildSnapshotRejectsMalformedID(t *testing.T) {
	gen, _ := newTestGenerator(bothPresent)

	_, err := gen.BuildSnapshot(models.ClusterRef{ID: "bad-id"})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "bad-id")
}

func TestBuildSnapshotJSONShape(t *testing.T) {
	gen, _ := newTestGenerator(bothPresent)
	snapshot, err := gen.BuildSnapshot(models.ClusterRef{ID: "mock-cluster-3"})
	require.NoError(t, err)

	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"id", "api_server_url", "nodes", "unassigned_pods", "services"} {
		assert.Contains(t, doc, key)
	}

	node := doc["nodes"].(map[string]any)["node-0"].(map[string]any)
	capacity := node["status"].(map[string]any)["capacity"].(map[string]any)
	assert.Equal(t, "32Gi", capacity["memory"])

	pod := node["pods"].(map[string]any)["kube-system/sheriffTruman-0-0"].(map[string]any)
	assert.EqualValues(t, 123, pod["deleted"])
	assert.NotContains(t, pod, "ip")
	container := pod["containers"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{}, container["resources"].(map[string]any)["limits"])
	assert.Equal(t, "CrashLoopBackOff", container["state"].(map[string]any)["waiting"].(map[string]any)["reason"])
}
