package services

import (
	"kdash-mock/internal/models"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Usage is the share of node capacity claimed by container resource requests
type Usage struct {
	CPUPercent    float64
	MemoryPercent float64
}

// RequestedUsage sums the requests of pods scheduled on nodes against node capacity.
// Unassigned pods claim nothing
func RequestedUsage(snapshot models.ClusterSnapshot) Usage {
	var cpuCap, memCap, cpuReq, memReq resource.Quantity

	for _, node := range snapshot.Nodes {
		cpuCap.Add(*node.Status.Capacity.Cpu())
		memCap.Add(*node.Status.Capacity.Memory())
		for _, pod := range node.Pods {
			for _, c := range pod.Containers {
				cpuReq.Add(*c.Resources.Requests.Cpu())
				memReq.Add(*c.Resources.Requests.Memory())
			}
		}
	}

	return Usage{
		CPUPercent:    percent(cpuReq.MilliValue(), cpuCap.MilliValue()),
		MemoryPercent: percent(memReq.Value(), memCap.Value()),
	}
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// SummarizePods counts every pod of a snapshot, scheduled or not, by phase
func SummarizePods(snapshot models.ClusterSnapshot) models.PodSummary {
	var summary models.PodSummary
	count := func(pod models.Pod) {
		summary.Total++
		switch pod.Phase {
		case corev1.PodRunning:
			summary.Running++
		case corev1.PodPending:
			summary.Pending++
		case corev1.PodFailed:
			summary.Failed++
		}
		if isCrashLooping(pod) {
			summary.CrashLooping++
		}
	}

	for _, node := range snapshot.Nodes {
		for _, pod := range node.Pods {
			count(pod)
		}
	}
	for _, pod := range snapshot.UnassignedPods {
		count(pod)
	}
	return summary
}

func isCrashLooping(pod models.Pod) bool {
	for _, c := range pod.Containers {
		if c.State.Waiting != nil && c.State.Waiting.Reason == crashLoopBackOff {
			return true
		}
	}
	return false
}
