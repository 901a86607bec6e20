package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kdash-mock/internal/mock"
	"kdash-mock/internal/models"
	"kdash-mock/internal/services"
	"kdash-mock/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

const (
	requestTimeout        = 30 * time.Second
	historyWindow         = 24 * time.Hour
	defaultStreamInterval = 5 * time.Second
)

// APIHandler handles all API requests
type APIHandler struct {
	k8sService     *services.KubernetesService
	store          *store.MetricsStore
	clock          clock.WithTicker
	streamInterval time.Duration
}

// NewAPIHandler creates a new API handler. clk stamps the dashboard rows and drives the
// event stream; nil means the wall clock
func NewAPIHandler(k8s *services.KubernetesService, s *store.MetricsStore, clk clock.WithTicker, streamInterval time.Duration) *APIHandler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if streamInterval <= 0 {
		streamInterval = defaultStreamInterval
	}
	return &APIHandler{
		k8sService:     k8s,
		store:          s,
		clock:          clk,
		streamInterval: streamInterval,
	}
}

// GetKubernetesClusters returns the snapshot of every enabled cluster
func (h *APIHandler) GetKubernetesClusters(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{
		"kubernetes_clusters": h.snapshots(ctx),
	})
}

// snapshots collects the snapshots of enabled clusters, skipping the ones that fail
func (h *APIHandler) snapshots(ctx context.Context) []models.ClusterSnapshot {
	names := h.k8sService.EnabledClusters()
	snapshots := make([]models.ClusterSnapshot, 0, len(names))
	for _, name := range names {
		snapshot, err := h.k8sService.GetSnapshot(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("cluster", name).Msg("failed to build snapshot")
			continue
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

// GetClusters returns all clusters with their health status
func (h *APIHandler) GetClusters(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	names := h.k8sService.EnabledClusters()
	clusters := make([]models.Cluster, 0, len(names))
	for _, name := range names {
		cluster, _ := h.describe(ctx, name)
		clusters = append(clusters, cluster)
	}

	c.JSON(http.StatusOK, gin.H{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// GetClusterDetails returns detailed info for a specific cluster
func (h *APIHandler) GetClusterDetails(c *gin.Context) {
	clusterName := c.Param("name")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, ok := h.k8sService.GetConfig(clusterName); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
		return
	}

	cluster, pods := h.describe(ctx, clusterName)

	latest, err := h.store.GetLatestSnapshot(ctx, clusterName)
	if err != nil {
		log.Warn().Err(err).Str("cluster", clusterName).Msg("failed to read history")
	}

	c.JSON(http.StatusOK, gin.H{
		"cluster":      cluster,
		"latest":       latest,
		"running":      pods.Running,
		"pending":      pods.Pending,
		"failed":       pods.Failed,
		"crashLooping": pods.CrashLooping,
	})
}

// describe builds the dashboard row of a cluster. A cluster that cannot be observed is
// reported as Critical. Real clusters are probed before the full listing
func (h *APIHandler) describe(ctx context.Context, clusterName string) (models.Cluster, models.PodSummary) {
	cfg, _ := h.k8sService.GetConfig(clusterName)
	cluster := models.Cluster{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Context:     cfg.Context,
		Mock:        cfg.Mock,
		Status:      "Critical",
		LastUpdated: h.clock.Now(),
	}

	if !cfg.Mock && !h.k8sService.CheckConnectivity(ctx, clusterName) {
		log.Warn().Str("cluster", clusterName).Msg("cluster unreachable")
		return cluster, models.PodSummary{}
	}

	state, err := h.k8sService.Observe(ctx, clusterName)
	if err != nil {
		log.Warn().Err(err).Str("cluster", clusterName).Msg("failed to observe cluster")
		return cluster, models.PodSummary{}
	}

	cluster.NodeCount = len(state.Snapshot.Nodes)
	cluster.PodCount = state.Pods.Total
	cluster.CPUUsage = state.Usage.CPUPercent
	cluster.MemoryUsage = state.Usage.MemoryPercent
	cluster.Status = determineClusterStatus(cluster.CPUUsage, cluster.MemoryUsage, state.Pods)
	return cluster, state.Pods
}

// GetClusterSnapshot returns the full snapshot of one cluster
func (h *APIHandler) GetClusterSnapshot(c *gin.Context) {
	clusterName := c.Param("name")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	snapshot, err := h.k8sService.GetSnapshot(ctx, clusterName)
	if err != nil {
		var parseErr *mock.ParseError
		if errors.As(err, &parseErr) {
			log.Error().Err(err).Str("cluster", clusterName).Msg("mock cluster has no index")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetClusterNodes returns nodes for a specific cluster
func (h *APIHandler) GetClusterNodes(c *gin.Context) {
	clusterName := c.Param("name")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	nodes, err := h.k8sService.GetNodes(ctx, clusterName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// GetClusterPods returns pods for a specific cluster
func (h *APIHandler) GetClusterPods(c *gin.Context) {
	clusterName := c.Param("name")
	namespace := c.Query("namespace")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	pods, err := h.k8sService.GetPods(ctx, clusterName, namespace)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pods":  pods,
		"count": len(pods),
	})
}

// GetClusterHistory returns the summaries recorded for a cluster over the last day
func (h *APIHandler) GetClusterHistory(c *gin.Context) {
	clusterName := c.Param("name")

	snapshots, err := h.store.GetSnapshots(c.Request.Context(), clusterName, historyWindow)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// GetAlerts returns active alerts
func (h *APIHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.store.GetActiveAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert marks one alert as resolved
func (h *APIHandler) ResolveAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := h.store.ResolveAlert(c.Request.Context(), uint(id)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "resolved": true})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrClusterNotFound) || errors.Is(err, store.ErrAlertNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Helper function to determine cluster health status
func determineClusterStatus(cpuUsage, memUsage float64, pods models.PodSummary) string {
	// Critical conditions
	if cpuUsage > 95 || memUsage > 95 || pods.Failed > 0 {
		return "Critical"
	}
	// Warning conditions
	if cpuUsage > 80 || memUsage > 80 || pods.Pending > 5 || pods.CrashLooping > 0 {
		return "Warning"
	}
	return "Healthy"
}
