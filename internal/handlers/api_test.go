package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"kdash-mock/internal/mock"
	"kdash-mock/internal/models"
	"kdash-mock/internal/services"
	"kdash-mock/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testStreamInterval = 5 * time.Second

type testEnv struct {
	router *gin.Engine
	store  *store.MetricsStore
	clock  *testingclock.FakeClock
}

// newTestEnv serves one healthy mock cluster, one misnamed mock cluster and one real
// cluster without a kubeconfig
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	t.Setenv("KUBECONFIG", filepath.Join(t.TempDir(), "missing-kubeconfig"))

	clk := testingclock.NewFakeClock(time.Unix(13, 0))
	k8s := services.NewKubernetesService([]models.ClusterConfig{
		{Name: "mock-cluster-3", DisplayName: "Mock 3", Mock: true, Enabled: true},
		{Name: "mock-broken", Mock: true, Enabled: true},
		{Name: "prod", Context: "prod", Enabled: true},
	}, mock.NewGenerator(clk, mock.NewSeededRand(1)))

	storeClock := testingclock.NewFakePassiveClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s, err := store.NewMetricsStore(filepath.Join(t.TempDir(), "metrics.db"), storeClock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return testEnv{
		router: NewRouter(NewAPIHandler(k8s, s, clk, testStreamInterval)),
		store:  s,
		clock:  clk,
	}
}

func (e testEnv) do(t *testing.T, method, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	e.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetKubernetesClusters(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Clusters []models.ClusterSnapshot `json:"kubernetes_clusters"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/kubernetes-clusters", &body))

	// clusters that cannot produce a snapshot are left out
	require.Len(t, body.Clusters, 1)
	assert.Equal(t, "mock-cluster-3", body.Clusters[0].ID)
	assert.Equal(t, "https://kube-3.example.org", body.Clusters[0].APIServerURL)
	assert.Len(t, body.Clusters[0].Nodes, 10)
	assert.Len(t, body.Clusters[0].Services, 8)
}

func TestGetClusters(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Clusters []models.Cluster `json:"clusters"`
		Count    int              `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters", &body))
	require.Equal(t, 3, body.Count)

	byName := map[string]models.Cluster{}
	for _, c := range body.Clusters {
		byName[c.Name] = c
	}

	healthy := byName["mock-cluster-3"]
	assert.Equal(t, "Warning", healthy.Status)
	assert.True(t, healthy.Mock)
	assert.Equal(t, "Mock 3", healthy.DisplayName)
	assert.Equal(t, 10, healthy.NodeCount)
	assert.Equal(t, 152, healthy.PodCount)
	assert.InDelta(t, 56.0, healthy.CPUUsage, 1e-9)

	assert.Equal(t, "Critical", byName["mock-broken"].Status)
	assert.Equal(t, "Critical", byName["prod"].Status)
}

func TestGetClusterDetails(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.store.SaveSnapshot(context.Background(), &models.MetricSnapshot{
		Cluster:  "mock-cluster-3",
		PodCount: 138,
	}))

	var body struct {
		Cluster      models.Cluster         `json:"cluster"`
		Latest       *models.MetricSnapshot `json:"latest"`
		Running      int                    `json:"running"`
		Pending      int                    `json:"pending"`
		Failed       int                    `json:"failed"`
		CrashLooping int                    `json:"crashLooping"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/mock-cluster-3", &body))
	require.NotNil(t, body.Latest)
	assert.Equal(t, 138, body.Latest.PodCount)
	assert.Equal(t, "Warning", body.Cluster.Status)
	assert.Equal(t, 111, body.Running)
	assert.Equal(t, 41, body.Pending)
	assert.Equal(t, 0, body.Failed)
	assert.Equal(t, 11, body.CrashLooping)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/clusters/nope", nil))

	// a real cluster without a client is reported as Critical with no history
	var prod struct {
		Cluster models.Cluster         `json:"cluster"`
		Latest  *models.MetricSnapshot `json:"latest"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/prod", &prod))
	assert.Equal(t, "Critical", prod.Cluster.Status)
	assert.Nil(t, prod.Latest)
}

func TestGetClusterSnapshot(t *testing.T) {
	env := newTestEnv(t)

	var snapshot models.ClusterSnapshot
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/mock-cluster-3/snapshot", &snapshot))
	assert.Equal(t, "mock-cluster-3", snapshot.ID)
	assert.Len(t, snapshot.UnassignedPods, 1)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/clusters/nope/snapshot", &errBody))
	assert.Contains(t, errBody["error"], "cluster not found")

	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/api/clusters/mock-broken/snapshot", &errBody))
	assert.Contains(t, errBody["error"], "mock-broken")
}

func TestGetClusterNodesAndPods(t *testing.T) {
	env := newTestEnv(t)

	var nodes struct {
		Nodes []models.NodeInfo `json:"nodes"`
		Count int               `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/mock-cluster-3/nodes", &nodes))
	assert.Equal(t, 10, nodes.Count)
	assert.Equal(t, "node-0", nodes.Nodes[0].Name)

	var pods struct {
		Pods  []models.PodInfo `json:"pods"`
		Count int              `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/mock-cluster-3/pods?namespace=kube-system", &pods))
	assert.Equal(t, 30, pods.Count)
	for _, p := range pods.Pods {
		assert.Equal(t, "kube-system", p.Namespace)
	}

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/clusters/nope/nodes", nil))
	assert.Equal(t, http.StatusInternalServerError, env.do(t, http.MethodGet, "/api/clusters/prod/pods", nil))
}

func TestGetClusterHistory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SaveSnapshot(context.Background(), &models.MetricSnapshot{
		Cluster:  "mock-cluster-3",
		PodCount: 152,
	}))

	var body struct {
		Snapshots []models.MetricSnapshot `json:"snapshots"`
		Count     int                     `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/clusters/mock-cluster-3/history", &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, 152, body.Snapshots[0].PodCount)
}

func TestAlerts(t *testing.T) {
	env := newTestEnv(t)
	alert := &models.Alert{Cluster: "mock-cluster-3", Severity: "Warning", Message: "11 pod(s) in CrashLoopBackOff"}
	require.NoError(t, env.store.SaveAlert(context.Background(), alert))

	var body struct {
		Alerts []models.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/alerts", &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, alert.Message, body.Alerts[0].Message)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/alerts/abc/resolve", nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/alerts/999/resolve", nil))

	path := "/api/alerts/" + strconv.FormatUint(uint64(alert.ID), 10) + "/resolve"
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, path, nil))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/alerts", &body))
	assert.Equal(t, 0, body.Count)
}

func TestStreamClusters(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<22)
	nextSnapshot := func() models.ClusterSnapshot {
		sawEvent := false
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "event:"+clusterUpdateEvent:
				sawEvent = true
			case strings.HasPrefix(line, "data:"):
				require.True(t, sawEvent, "data without event line")
				var snapshot models.ClusterSnapshot
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &snapshot))
				return snapshot
			}
		}
		t.Fatalf("stream ended: %v", scanner.Err())
		return models.ClusterSnapshot{}
	}

	// one event on connect
	assert.Equal(t, "mock-cluster-3", nextSnapshot().ID)

	// and one per tick of the handler's clock
	require.Eventually(t, env.clock.HasWaiters, 5*time.Second, 10*time.Millisecond)
	env.clock.Step(testStreamInterval)
	assert.Equal(t, "mock-cluster-3", nextSnapshot().ID)
}

func TestDetermineClusterStatus(t *testing.T) {
	tests := []struct {
		name     string
		cpu, mem float64
		pods     models.PodSummary
		expected string
	}{
		{name: "healthy", cpu: 50, mem: 50, expected: "Healthy"},
		{name: "cpu elevated", cpu: 85, expected: "Warning"},
		{name: "many pending", pods: models.PodSummary{Pending: 6}, expected: "Warning"},
		{name: "few pending", pods: models.PodSummary{Pending: 5}, expected: "Healthy"},
		{name: "crash looping", pods: models.PodSummary{CrashLooping: 1}, expected: "Warning"},
		{name: "memory critical", mem: 96, expected: "Critical"},
		{name: "failed pods", pods: models.PodSummary{Failed: 1, CrashLooping: 1}, expected: "Critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineClusterStatus(tt.cpu, tt.mem, tt.pods))
		})
	}
}
