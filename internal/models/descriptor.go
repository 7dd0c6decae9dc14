package models

// DeploymentDescriptor is the rendered chart values document driving an
// install or upgrade. Field names follow the tenant chart's values schema;
// it is marshalled to YAML only at the chart-tool boundary.
type DeploymentDescriptor struct {
	TenantID    string `json:"tenantId"`
	CompanyName string `json:"companyName"`
	Host        string `json:"host"`

	Database DescriptorDatabase `json:"database"`
	API      DescriptorWorkload `json:"api"`
	Web      DescriptorWorkload `json:"web"`

	SeatLimit int  `json:"seatLimit"`
	Demo      bool `json:"demo,omitempty"`
	TrialDays int  `json:"trialDays,omitempty"`

	ExtraEnv []EnvEntry `json:"extraEnv,omitempty"`

	Billing *DescriptorBilling `json:"billing,omitempty"`
}

// DescriptorDatabase sizes the tenant's database cluster.
type DescriptorDatabase struct {
	Instances     int    `json:"instances"`
	StorageSize   string `json:"storageSize"` // e.g. "20Gi"
	BackupEnabled bool   `json:"backupEnabled"`
}

// DescriptorWorkload configures one workload deployment.
type DescriptorWorkload struct {
	Replicas int    `json:"replicas"`
	Image    string `json:"image"`
	Tag      string `json:"tag"`
}

// EnvEntry is one extra environment variable injected into the workloads.
type EnvEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DescriptorBilling passes payment-processor references through unchanged.
type DescriptorBilling struct {
	CustomerID     string `json:"customerId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}
