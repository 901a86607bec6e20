package mock

import (
	"fmt"
	"time"

	"kdash-mock/internal/models"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	nodeSlots   = 10
	maxPodSlots = 32

	flappingNode   = 8
	nodeFlapPeriod = 13 // seconds
	podFlapPeriod  = 7  // seconds
	podFlapModulus = 17

	masterNodes         = 2
	unassignedNodeIndex = 11
)

// Topology is the node layout of one mock cluster
type Topology struct {
	Nodes map[string]models.Node
	// NodeNames lists the present nodes in grid order
	NodeNames []string
	// PodsByBaseName indexes every scheduled pod by its name pool entry, in grid order
	PodsByBaseName map[string][]models.Pod
	Unassigned     models.Pod
}

// AssembleTopology lays out the nodes and pods of a cluster. Node 8 leaves and rejoins
// every 13 seconds; pods in slots divisible by 17 come and go every 7 seconds
func (g *Generator) AssembleTopology(clusterIndex int) Topology {
	now := g.clock.Now()
	nodeAway := evenBucket(now, nodeFlapPeriod)
	podsAway := evenBucket(now, podFlapPeriod)

	topo := Topology{
		Nodes:          make(map[string]models.Node, nodeSlots),
		NodeNames:      make([]string, 0, nodeSlots),
		PodsByBaseName: make(map[string][]models.Pod, len(names)),
	}

	for i := range nodeSlots {
		if i == flappingNode && nodeAway {
			continue
		}

		nodeLabels := labels.Set{}
		if i < masterNodes {
			nodeLabels["master"] = "true"
		}

		pods := make(map[string]models.Pod)
		for j := range pick((clusterIndex+1)*(i+1), maxPodSlots) {
			if j%podFlapModulus == 0 && podsAway {
				continue
			}
			pod := SynthesizePod(clusterIndex, i, j)
			pods[pod.Key()] = pod
			base := BaseName(pod.Name)
			topo.PodsByBaseName[base] = append(topo.PodsByBaseName[base], pod)
		}

		name := fmt.Sprintf("node-%d", i)
		topo.Nodes[name] = models.Node{
			Name:   name,
			Labels: nodeLabels,
			Status: models.NodeStatus{Capacity: nodeCapacity()},
			Pods:   pods,
		}
		topo.NodeNames = append(topo.NodeNames, name)
	}

	topo.Unassigned = SynthesizePod(clusterIndex, unassignedNodeIndex, clusterIndex)
	return topo
}

// evenBucket reports whether floor(unix seconds / period) is even
func evenBucket(t time.Time, period int64) bool {
	secs := t.Unix()
	bucket := secs / period
	if secs%period < 0 {
		bucket--
	}
	return bucket%2 == 0
}

func nodeCapacity() corev1.ResourceList {
	return corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("4"),
		corev1.ResourceMemory: resource.MustParse("32Gi"),
		corev1.ResourcePods:   resource.MustParse("110"),
	}
}
