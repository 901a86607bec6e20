package mock

import (
	"fmt"
	"strings"

	"kdash-mock/internal/models"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	containerName    = "myapp"
	crashLoopBackOff = "CrashLoopBackOff"

	crashLoopModulus = 13
	restartModulus   = 7
	deletedModulus   = 17

	restartCount    int32 = 3
	deletedSentinel int64 = 123

	// pods below this slot index live in kube-system
	systemPodSlots = 3
)

// names is the pool pod and service names are drawn from
var names = [...]string{
	"agentCooper",
	"blackLodge",
	"bob",
	"bobbyBriggs",
	"lauraPalmer",
	"lelandPalmer",
	"logLady",
	"sheriffTruman",
}

// podPhases weights Running 2:1 over Pending
var podPhases = [...]corev1.PodPhase{corev1.PodPending, corev1.PodRunning, corev1.PodRunning}

// SynthesizePod derives the pod at grid slot (nodeIndex, podIndex) of the given cluster.
// The result depends only on its arguments
func SynthesizePod(clusterIndex, nodeIndex, podIndex int) models.Pod {
	phase := podPhases[pick((clusterIndex+1)*(nodeIndex+1)*(podIndex+1), len(podPhases))]

	count := 1 + podIndex%2
	containers := make([]models.Container, 0, max(count, 0))
	for range count {
		container := newContainer(podIndex)
		// Pending pods keep the default template even in crash-loop slots
		if phase == corev1.PodRunning {
			switch {
			case podIndex%crashLoopModulus == 0:
				container.Ready = false
				container.State = models.ContainerState{
					Waiting: &models.ContainerStateWaiting{Reason: crashLoopBackOff},
				}
			case podIndex%restartModulus == 0:
				restarts := restartCount
				container.RestartCount = &restarts
			}
		}
		containers = append(containers, container)
	}

	namespace := metav1.NamespaceDefault
	if podIndex < systemPodSlots {
		namespace = metav1.NamespaceSystem
	}

	pod := models.Pod{
		Name:       fmt.Sprintf("%s-%d-%d", names[pick((nodeIndex+1)*(podIndex+1), len(names))], nodeIndex, podIndex),
		Namespace:  namespace,
		Labels:     labels.Set{},
		Phase:      phase,
		Containers: containers,
	}
	if phase == corev1.PodRunning && podIndex%deletedModulus == 0 {
		deleted := deletedSentinel
		pod.Deleted = &deleted
	}
	return pod
}

// BaseName returns the name pool entry a synthesized pod name was built from
func BaseName(podName string) string {
	base, _, _ := strings.Cut(podName, "-")
	return base
}

func newContainer(podIndex int) models.Container {
	return models.Container{
		Name:  containerName,
		Image: fmt.Sprintf("foo/bar/%d", podIndex),
		Resources: models.ContainerResources{
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("100m"),
				corev1.ResourceMemory: resource.MustParse("100Mi"),
			},
			Limits: corev1.ResourceList{},
		},
		Ready: true,
		State: models.ContainerState{Running: &models.ContainerStateRunning{}},
	}
}
