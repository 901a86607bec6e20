package models

import "time"

// Cluster represents a dashboard row for one cluster, real or mock
type Cluster struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Status      string    `json:"status"` // Healthy/Warning/Critical
	Mock        bool      `json:"mock"`
	CPUUsage    float64   `json:"cpuUsage"`    // requested CPU over capacity, percent
	MemoryUsage float64   `json:"memoryUsage"` // requested memory over capacity, percent
	NodeCount   int       `json:"nodeCount"`
	PodCount    int       `json:"podCount"`
	Context     string    `json:"context"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ClusterConfig represents one entry of the clusters file
type ClusterConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName"`
	Context     string `yaml:"context"`
	Mock        bool   `yaml:"mock"`
	Enabled     bool   `yaml:"enabled"`
}

// ClustersConfig represents the full clusters configuration file
type ClustersConfig struct {
	Clusters []ClusterConfig `yaml:"clusters"`
}

// NodeInfo is the summary row the nodes endpoint returns
type NodeInfo struct {
	Name     string   `json:"name"`
	Status   string   `json:"status"` // Ready/NotReady
	PodCount int      `json:"podCount"`
	Roles    []string `json:"roles"`
	CPU      string   `json:"cpu"`
	Memory   string   `json:"memory"`
}

// PodInfo is the summary row the pods endpoint returns
type PodInfo struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Status      string `json:"status"` // Running/Pending/Failed/Succeeded
	Reason      string `json:"reason,omitempty"`
	Restarts    int    `json:"restarts"`
	ReadyCount  int    `json:"readyCount"`
	Containers  int    `json:"containers"`
	Node        string `json:"node"`
	Terminating bool   `json:"terminating"`
}

// PodSummary counts pods of a cluster by phase
type PodSummary struct {
	Running      int `json:"running"`
	Pending      int `json:"pending"`
	Failed       int `json:"failed"`
	CrashLooping int `json:"crashLooping"`
	Total        int `json:"total"`
}

// Alert kinds. A cluster has at most one open alert per kind
const (
	AlertKindCPU       = "cpu"
	AlertKindMemory    = "memory"
	AlertKindFailed    = "failed"
	AlertKindCrashLoop = "crashloop"
)

// Alert represents a system alert
type Alert struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Cluster   string    `json:"cluster" gorm:"index"`
	Kind      string    `json:"kind" gorm:"index"`
	Severity  string    `json:"severity"` // Warning/Critical
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// MetricSnapshot stores historical summaries for charting
type MetricSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Cluster      string    `json:"cluster" gorm:"index"`
	CPUUsage     float64   `json:"cpuUsage"`
	MemoryUsage  float64   `json:"memoryUsage"`
	PodCount     int       `json:"podCount"`
	PendingCount int       `json:"pendingCount"`
	CrashLooping int       `json:"crashLooping"`
	NodeCount    int       `json:"nodeCount"`
	ServiceCount int       `json:"serviceCount"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
}
