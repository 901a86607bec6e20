package models

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// ClusterRef identifies a cluster by its textual id, e.g. "mock-cluster-3"
type ClusterRef struct {
	ID string `json:"id"`
}

// ClusterSnapshot is the observable state of one cluster at one instant. It is the shape
// the visualization frontend polls for, whether the cluster is real or synthesized
type ClusterSnapshot struct {
	ID             string          `json:"id"`
	APIServerURL   string          `json:"api_server_url"`
	Nodes          map[string]Node `json:"nodes"`
	UnassignedPods map[string]Pod  `json:"unassigned_pods"`
	Services       []Service       `json:"services"`
}

// Node is a cluster node and the pods scheduled on it, keyed "<namespace>/<name>"
type Node struct {
	Name   string         `json:"name"`
	Labels labels.Set     `json:"labels"`
	Status NodeStatus     `json:"status"`
	Pods   map[string]Pod `json:"pods"`
}

type NodeStatus struct {
	Capacity corev1.ResourceList `json:"capacity"`
}

type Pod struct {
	Name       string          `json:"name"`
	Namespace  string          `json:"namespace"`
	Labels     labels.Set      `json:"labels"`
	Phase      corev1.PodPhase `json:"phase"`
	Containers []Container     `json:"containers"`
	IP         string          `json:"ip,omitempty"`

	// Deleted marks a pod that is being terminated; the value is a unix timestamp
	Deleted *int64 `json:"deleted,omitempty"`
}

// Key returns the "<namespace>/<name>" map key used for pods
func (p Pod) Key() string {
	return p.Namespace + "/" + p.Name
}

type Container struct {
	Name         string             `json:"name"`
	Image        string             `json:"image"`
	Resources    ContainerResources `json:"resources"`
	Ready        bool               `json:"ready"`
	State        ContainerState     `json:"state"`
	RestartCount *int32             `json:"restartCount,omitempty"`
}

type ContainerResources struct {
	Requests corev1.ResourceList `json:"requests"`
	Limits   corev1.ResourceList `json:"limits"`
}

// ContainerState holds exactly one of Running or Waiting
type ContainerState struct {
	Running *ContainerStateRunning `json:"running,omitempty"`
	Waiting *ContainerStateWaiting `json:"waiting,omitempty"`
}

type ContainerStateRunning struct{}

type ContainerStateWaiting struct {
	Reason string `json:"reason"`
}

type Service struct {
	Name      string             `json:"name"`
	Namespace string             `json:"namespace"`
	ClusterIP string             `json:"clusterIP"`
	Ports     []string           `json:"ports"`
	Selector  labels.Set         `json:"selector"`
	Type      corev1.ServiceType `json:"type"`
	Endpoint  Endpoint           `json:"endpoint"`
}

type Endpoint struct {
	Name      string           `json:"name"`
	Namespace string           `json:"namespace"`
	Subsets   []EndpointSubset `json:"subsets"`
}

type EndpointSubset struct {
	Addresses []EndpointAddress `json:"addresses"`
	Ports     []string          `json:"ports"`
}

type EndpointAddress struct {
	IP        string `json:"ip"`
	NodeName  string `json:"nodeName"`
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}
