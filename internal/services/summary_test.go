package services

import (
	"testing"

	"kdash-mock/internal/models"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

func TestSummarizePodsMockCluster(t *testing.T) {
	snapshot := buildMockSnapshot(t, "mock-cluster-3")

	summary := SummarizePods(snapshot)
	assert.Equal(t, models.PodSummary{
		Running:      111,
		Pending:      41,
		Failed:       0,
		CrashLooping: 11,
		Total:        152,
	}, summary)
}

func TestRequestedUsage(t *testing.T) {
	requests := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("100m"),
		corev1.ResourceMemory: resource.MustParse("100Mi"),
	}
	container := models.Container{Resources: models.ContainerResources{Requests: requests}}

	snapshot := models.ClusterSnapshot{
		Nodes: map[string]models.Node{
			"node-0": {
				Status: models.NodeStatus{Capacity: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("4"),
					corev1.ResourceMemory: resource.MustParse("32Gi"),
				}},
				Pods: map[string]models.Pod{
					"default/a": {Containers: []models.Container{container, container}},
				},
			},
		},
		UnassignedPods: map[string]models.Pod{
			"default/b": {Containers: []models.Container{container}},
		},
	}

	usage := RequestedUsage(snapshot)
	assert.InDelta(t, 5.0, usage.CPUPercent, 1e-9)
	assert.InDelta(t, 200.0/32768.0*100, usage.MemoryPercent, 1e-9)
}

func TestRequestedUsageEmptySnapshot(t *testing.T) {
	assert.Equal(t, Usage{}, RequestedUsage(models.ClusterSnapshot{}))
}
