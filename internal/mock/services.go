package mock

import (
	"slices"

	"kdash-mock/internal/models"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	serviceClusterIP = "127.0.0.1"
	addressKind      = "Pod"
)

var servicePorts = [...]string{"8080", "443", "5443", "8888", "7979", "9000", "8000"}

// SynthesizeServices returns one LoadBalancer service per name pool entry. Each endpoint
// lists the pods indexed under the service's name; an unmatched service gets an empty
// address list
func (g *Generator) SynthesizeServices(podsByBaseName map[string][]models.Pod, nodeNames []string) []models.Service {
	services := make([]models.Service, 0, len(names))
	for _, name := range names {
		ports := []string{servicePorts[g.rand.IntN(len(servicePorts))]}

		pods := podsByBaseName[name]
		addresses := make([]models.EndpointAddress, 0, len(pods))
		for _, pod := range pods {
			addresses = append(addresses, models.EndpointAddress{
				IP:        pod.IP,
				NodeName:  g.pickNodeName(nodeNames),
				Kind:      addressKind,
				Namespace: pod.Namespace,
				Name:      pod.Name,
			})
		}

		services = append(services, models.Service{
			Name:      name,
			Namespace: metav1.NamespaceDefault,
			ClusterIP: serviceClusterIP,
			Ports:     ports,
			Selector:  labels.Set{"app": name},
			Type:      corev1.ServiceTypeLoadBalancer,
			Endpoint: models.Endpoint{
				Name:      name,
				Namespace: metav1.NamespaceDefault,
				Subsets: []models.EndpointSubset{{
					Addresses: addresses,
					Ports:     slices.Clone(ports),
				}},
			},
		})
	}
	return services
}

func (g *Generator) pickNodeName(nodeNames []string) string {
	if len(nodeNames) == 0 {
		return ""
	}
	return nodeNames[g.rand.IntN(len(nodeNames))]
}
