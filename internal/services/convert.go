package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"kdash-mock/internal/models"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
)

// SnapshotObjects converts a snapshot into the API objects a real cluster would serve:
// nodes, pods (unassigned ones without a node name), services and endpoints
func SnapshotObjects(snapshot models.ClusterSnapshot) []runtime.Object {
	objects := make([]runtime.Object, 0, len(snapshot.Nodes)+len(snapshot.UnassignedPods)+2*len(snapshot.Services))

	for _, node := range snapshot.Nodes {
		objects = append(objects, toCoreNode(node))
		for _, pod := range node.Pods {
			objects = append(objects, toCorePod(pod, node.Name))
		}
	}
	for _, pod := range snapshot.UnassignedPods {
		objects = append(objects, toCorePod(pod, ""))
	}
	for _, svc := range snapshot.Services {
		objects = append(objects, toCoreService(svc), toCoreEndpoints(svc.Endpoint))
	}
	return objects
}

// SnapshotFromClient lists a cluster's nodes, pods, services and endpoints and assembles
// them into a snapshot. Pods whose node is not listed are reported as unassigned
func SnapshotFromClient(ctx context.Context, client kubernetes.Interface, id, apiServerURL string) (models.ClusterSnapshot, error) {
	core := client.CoreV1()

	nodeList, err := core.Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("failed to list nodes: %w", err)
	}
	podList, err := core.Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("failed to list pods: %w", err)
	}
	serviceList, err := core.Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("failed to list services: %w", err)
	}
	endpointsList, err := core.Endpoints(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return models.ClusterSnapshot{}, fmt.Errorf("failed to list endpoints: %w", err)
	}

	snapshot := models.ClusterSnapshot{
		ID:             id,
		APIServerURL:   apiServerURL,
		Nodes:          make(map[string]models.Node, len(nodeList.Items)),
		UnassignedPods: make(map[string]models.Pod),
		Services:       make([]models.Service, 0, len(serviceList.Items)),
	}

	for _, n := range nodeList.Items {
		snapshot.Nodes[n.Name] = models.Node{
			Name:   n.Name,
			Labels: labelSet(n.Labels),
			Status: models.NodeStatus{Capacity: resourceList(n.Status.Capacity)},
			Pods:   make(map[string]models.Pod),
		}
	}

	for i := range podList.Items {
		p := &podList.Items[i]
		pod := fromCorePod(p)
		if node, ok := snapshot.Nodes[p.Spec.NodeName]; ok {
			node.Pods[pod.Key()] = pod
			continue
		}
		snapshot.UnassignedPods[pod.Key()] = pod
	}

	endpoints := make(map[string]*corev1.Endpoints, len(endpointsList.Items))
	for i := range endpointsList.Items {
		ep := &endpointsList.Items[i]
		endpoints[ep.Namespace+"/"+ep.Name] = ep
	}

	for i := range serviceList.Items {
		svc := &serviceList.Items[i]
		snapshot.Services = append(snapshot.Services, fromCoreService(svc, endpoints[svc.Namespace+"/"+svc.Name]))
	}
	sort.Slice(snapshot.Services, func(i, j int) bool {
		a, b := snapshot.Services[i], snapshot.Services[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Name < b.Name
	})

	return snapshot, nil
}

func toCoreNode(node models.Node) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: node.Name, Labels: node.Labels},
		Status: corev1.NodeStatus{
			Capacity:    node.Status.Capacity.DeepCopy(),
			Allocatable: node.Status.Capacity.DeepCopy(),
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func toCorePod(pod models.Pod, nodeName string) *corev1.Pod {
	p := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: pod.Name, Namespace: pod.Namespace, Labels: pod.Labels},
		Spec:       corev1.PodSpec{NodeName: nodeName},
		Status:     corev1.PodStatus{Phase: pod.Phase, PodIP: pod.IP},
	}
	if pod.Deleted != nil {
		deleted := metav1.NewTime(time.Unix(*pod.Deleted, 0))
		p.DeletionTimestamp = &deleted
	}

	for _, c := range pod.Containers {
		p.Spec.Containers = append(p.Spec.Containers, corev1.Container{
			Name:  c.Name,
			Image: c.Image,
			Resources: corev1.ResourceRequirements{
				Requests: c.Resources.Requests.DeepCopy(),
				Limits:   c.Resources.Limits.DeepCopy(),
			},
		})

		status := corev1.ContainerStatus{Name: c.Name, Image: c.Image, Ready: c.Ready}
		if c.RestartCount != nil {
			status.RestartCount = *c.RestartCount
		}
		switch {
		case c.State.Waiting != nil:
			status.State.Waiting = &corev1.ContainerStateWaiting{Reason: c.State.Waiting.Reason}
		case c.State.Running != nil:
			status.State.Running = &corev1.ContainerStateRunning{}
		}
		p.Status.ContainerStatuses = append(p.Status.ContainerStatuses, status)
	}
	return p
}

func toCoreService(svc models.Service) *corev1.Service {
	ports := make([]corev1.ServicePort, 0, len(svc.Ports))
	for _, port := range svc.Ports {
		number, err := strconv.Atoi(port)
		if err != nil {
			continue
		}
		ports = append(ports, corev1.ServicePort{
			Name:     "port-" + port,
			Protocol: corev1.ProtocolTCP,
			Port:     int32(number),
		})
	}

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: svc.Name, Namespace: svc.Namespace},
		Spec: corev1.ServiceSpec{
			Type:      svc.Type,
			ClusterIP: svc.ClusterIP,
			Selector:  svc.Selector,
			Ports:     ports,
		},
	}
}

func toCoreEndpoints(ep models.Endpoint) *corev1.Endpoints {
	out := &corev1.Endpoints{
		ObjectMeta: metav1.ObjectMeta{Name: ep.Name, Namespace: ep.Namespace},
	}
	for _, subset := range ep.Subsets {
		var s corev1.EndpointSubset
		for _, addr := range subset.Addresses {
			a := corev1.EndpointAddress{
				IP:        addr.IP,
				TargetRef: &corev1.ObjectReference{Kind: addr.Kind, Namespace: addr.Namespace, Name: addr.Name},
			}
			if addr.NodeName != "" {
				nodeName := addr.NodeName
				a.NodeName = &nodeName
			}
			s.Addresses = append(s.Addresses, a)
		}
		for _, port := range subset.Ports {
			number, err := strconv.Atoi(port)
			if err != nil {
				continue
			}
			s.Ports = append(s.Ports, corev1.EndpointPort{Name: "port-" + port, Port: int32(number), Protocol: corev1.ProtocolTCP})
		}
		out.Subsets = append(out.Subsets, s)
	}
	return out
}

func fromCorePod(p *corev1.Pod) models.Pod {
	pod := models.Pod{
		Name:       p.Name,
		Namespace:  p.Namespace,
		Labels:     labelSet(p.Labels),
		Phase:      p.Status.Phase,
		IP:         p.Status.PodIP,
		Containers: make([]models.Container, 0, len(p.Spec.Containers)),
	}
	if p.DeletionTimestamp != nil {
		deleted := p.DeletionTimestamp.Unix()
		pod.Deleted = &deleted
	}

	for i, c := range p.Spec.Containers {
		container := models.Container{
			Name:  c.Name,
			Image: c.Image,
			Resources: models.ContainerResources{
				Requests: resourceList(c.Resources.Requests),
				Limits:   resourceList(c.Resources.Limits),
			},
		}
		if status, ok := containerStatus(p, i, c.Name); ok {
			container.Ready = status.Ready
			if status.RestartCount > 0 {
				restarts := status.RestartCount
				container.RestartCount = &restarts
			}
			switch {
			case status.State.Waiting != nil:
				container.State.Waiting = &models.ContainerStateWaiting{Reason: status.State.Waiting.Reason}
			case status.State.Running != nil:
				container.State.Running = &models.ContainerStateRunning{}
			}
		}
		pod.Containers = append(pod.Containers, container)
	}
	return pod
}

// containerStatus finds the status of the i-th container. Statuses are matched by position
// first since container names are not unique in synthesized pods
func containerStatus(p *corev1.Pod, i int, name string) (corev1.ContainerStatus, bool) {
	statuses := p.Status.ContainerStatuses
	if i < len(statuses) && statuses[i].Name == name {
		return statuses[i], true
	}
	for _, s := range statuses {
		if s.Name == name {
			return s, true
		}
	}
	return corev1.ContainerStatus{}, false
}

func fromCoreService(svc *corev1.Service, ep *corev1.Endpoints) models.Service {
	ports := make([]string, 0, len(svc.Spec.Ports))
	for _, port := range svc.Spec.Ports {
		ports = append(ports, strconv.Itoa(int(port.Port)))
	}

	out := models.Service{
		Name:      svc.Name,
		Namespace: svc.Namespace,
		ClusterIP: svc.Spec.ClusterIP,
		Ports:     ports,
		Selector:  labelSet(svc.Spec.Selector),
		Type:      svc.Spec.Type,
		Endpoint: models.Endpoint{
			Name:      svc.Name,
			Namespace: svc.Namespace,
			Subsets:   []models.EndpointSubset{},
		},
	}
	if ep == nil {
		return out
	}

	for _, subset := range ep.Subsets {
		s := models.EndpointSubset{
			Addresses: make([]models.EndpointAddress, 0, len(subset.Addresses)),
			Ports:     make([]string, 0, len(subset.Ports)),
		}
		for _, addr := range subset.Addresses {
			a := models.EndpointAddress{IP: addr.IP}
			if addr.NodeName != nil {
				a.NodeName = *addr.NodeName
			}
			if addr.TargetRef != nil {
				a.Kind = addr.TargetRef.Kind
				a.Namespace = addr.TargetRef.Namespace
				a.Name = addr.TargetRef.Name
			}
			s.Addresses = append(s.Addresses, a)
		}
		for _, port := range subset.Ports {
			s.Ports = append(s.Ports, strconv.Itoa(int(port.Port)))
		}
		out.Endpoint.Subsets = append(out.Endpoint.Subsets, s)
	}
	return out
}

func labelSet(m map[string]string) labels.Set {
	if m == nil {
		return labels.Set{}
	}
	return labels.Set(m)
}

func resourceList(list corev1.ResourceList) corev1.ResourceList {
	if list == nil {
		return corev1.ResourceList{}
	}
	return list.DeepCopy()
}
