package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"kdash-mock/internal/mock"
	"kdash-mock/internal/models"

	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/tools/clientcmd"
)

// ErrClusterNotFound is returned for cluster names that are not configured or not enabled
var ErrClusterNotFound = errors.New("cluster not found")

const crashLoopBackOff = "CrashLoopBackOff"

// KubernetesService serves cluster state for real clusters, reached through kubeconfig
// contexts, and for mock clusters, synthesized on every call
type KubernetesService struct {
	clients   map[string]kubernetes.Interface
	hosts     map[string]string
	configs   []models.ClusterConfig
	generator *mock.Generator
	mu        sync.RWMutex
}

// NewKubernetesService creates a new Kubernetes service. Real clusters whose client
// cannot be built are logged and left unreachable
func NewKubernetesService(configs []models.ClusterConfig, generator *mock.Generator) *KubernetesService {
	svc := &KubernetesService{
		clients:   make(map[string]kubernetes.Interface),
		hosts:     make(map[string]string),
		configs:   configs,
		generator: generator,
	}
	svc.initializeClients()
	return svc
}

// initializeClients creates Kubernetes clients for each enabled real cluster
func (s *KubernetesService) initializeClients() {
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		homeDir, _ := os.UserHomeDir()
		kubeconfig = filepath.Join(homeDir, ".kube", "config")
	}

	for _, clusterCfg := range s.configs {
		if !clusterCfg.Enabled || clusterCfg.Mock {
			continue
		}

		config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
			&clientcmd.ConfigOverrides{CurrentContext: clusterCfg.Context},
		).ClientConfig()
		if err != nil {
			log.Warn().Err(err).Str("cluster", clusterCfg.Name).Msg("failed to create cluster config")
			continue
		}

		clientset, err := kubernetes.NewForConfig(config)
		if err != nil {
			log.Warn().Err(err).Str("cluster", clusterCfg.Name).Msg("failed to create clientset")
			continue
		}

		s.setClient(clusterCfg.Name, clientset, config.Host)
	}
}

func (s *KubernetesService) setClient(name string, client kubernetes.Interface, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[name] = client
	s.hosts[name] = host
}

// GetConfigs returns all cluster configurations
func (s *KubernetesService) GetConfigs() []models.ClusterConfig {
	return s.configs
}

// GetConfig returns the configuration of an enabled cluster
func (s *KubernetesService) GetConfig(clusterName string) (models.ClusterConfig, bool) {
	for _, cfg := range s.configs {
		if cfg.Name == clusterName && cfg.Enabled {
			return cfg, true
		}
	}
	return models.ClusterConfig{}, false
}

// GetClient returns a client for the cluster. For mock clusters the client is a fake
// clientset holding a snapshot generated at call time
func (s *KubernetesService) GetClient(clusterName string) (kubernetes.Interface, error) {
	cfg, ok := s.GetConfig(clusterName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterName)
	}

	if cfg.Mock {
		snapshot, err := s.generator.BuildSnapshot(models.ClusterRef{ID: cfg.Name})
		if err != nil {
			return nil, err
		}
		return fake.NewSimpleClientset(SnapshotObjects(snapshot)...), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clusterName]
	if !ok {
		return nil, fmt.Errorf("no client for cluster %s", clusterName)
	}
	return client, nil
}

// GetSnapshot returns the full observable state of a cluster
func (s *KubernetesService) GetSnapshot(ctx context.Context, clusterName string) (models.ClusterSnapshot, error) {
	cfg, ok := s.GetConfig(clusterName)
	if !ok {
		return models.ClusterSnapshot{}, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterName)
	}
	if cfg.Mock {
		return s.generator.BuildSnapshot(models.ClusterRef{ID: cfg.Name})
	}

	client, err := s.GetClient(clusterName)
	if err != nil {
		return models.ClusterSnapshot{}, err
	}
	s.mu.RLock()
	host := s.hosts[clusterName]
	s.mu.RUnlock()

	return SnapshotFromClient(ctx, client, cfg.Name, host)
}

// CheckConnectivity verifies if a cluster is reachable
func (s *KubernetesService) CheckConnectivity(ctx context.Context, clusterName string) bool {
	client, err := s.GetClient(clusterName)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = client.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
	return err == nil
}

// GetNodes returns all nodes for a cluster, sorted by name
func (s *KubernetesService) GetNodes(ctx context.Context, clusterName string) ([]models.NodeInfo, error) {
	client, err := s.GetClient(clusterName)
	if err != nil {
		return nil, err
	}

	nodeList, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	podList, err := client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	podsPerNode := make(map[string]int, len(nodeList.Items))
	for _, p := range podList.Items {
		if p.Spec.NodeName != "" {
			podsPerNode[p.Spec.NodeName]++
		}
	}

	nodes := make([]models.NodeInfo, 0, len(nodeList.Items))
	for _, n := range nodeList.Items {
		nodes = append(nodes, models.NodeInfo{
			Name:     n.Name,
			Status:   getNodeStatus(n),
			Roles:    getNodeRoles(n),
			PodCount: podsPerNode[n.Name],
			CPU:      n.Status.Capacity.Cpu().String(),
			Memory:   n.Status.Capacity.Memory().String(),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })

	return nodes, nil
}

// GetPods returns all pods for a cluster (optionally filtered by namespace)
func (s *KubernetesService) GetPods(ctx context.Context, clusterName, namespace string) ([]models.PodInfo, error) {
	client, err := s.GetClient(clusterName)
	if err != nil {
		return nil, err
	}

	if namespace == "" {
		namespace = metav1.NamespaceAll
	}

	podList, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]models.PodInfo, 0, len(podList.Items))
	for _, p := range podList.Items {
		pod := models.PodInfo{
			Name:        p.Name,
			Namespace:   p.Namespace,
			Status:      string(p.Status.Phase),
			Containers:  len(p.Spec.Containers),
			Node:        p.Spec.NodeName,
			Terminating: p.DeletionTimestamp != nil,
		}
		for _, cs := range p.Status.ContainerStatuses {
			pod.Restarts += int(cs.RestartCount)
			if cs.Ready {
				pod.ReadyCount++
			}
			if cs.State.Waiting != nil && pod.Reason == "" {
				pod.Reason = cs.State.Waiting.Reason
			}
		}
		pods = append(pods, pod)
	}
	sort.Slice(pods, func(i, j int) bool {
		if pods[i].Namespace != pods[j].Namespace {
			return pods[i].Namespace < pods[j].Namespace
		}
		return pods[i].Name < pods[j].Name
	})

	return pods, nil
}

// Helper functions
func getNodeStatus(node corev1.Node) string {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			if condition.Status == corev1.ConditionTrue {
				return "Ready"
			}
			return "NotReady"
		}
	}
	return "Unknown"
}

func getNodeRoles(node corev1.Node) []string {
	roles := []string{}
	for label := range node.Labels {
		if strings.HasPrefix(label, "node-role.kubernetes.io/") {
			role := strings.TrimPrefix(label, "node-role.kubernetes.io/")
			if role != "" {
				roles = append(roles, role)
			}
		}
	}
	// mock clusters mark control plane nodes with a bare master=true label
	if node.Labels["master"] == "true" && !slices.Contains(roles, "master") {
		roles = append(roles, "master")
	}
	if len(roles) == 0 {
		roles = append(roles, "worker")
	}
	sort.Strings(roles)
	return roles
}
