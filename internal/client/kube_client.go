package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// KubeClient manages tenant namespaces and workloads on the orchestration
// cluster.
type KubeClient struct {
	c      crclient.Client
	logger *zap.Logger
}

// NewKubeClient builds a client from the ambient kubeconfig or, in-cluster,
// from the service account.
func NewKubeClient(logger *zap.Logger) (*KubeClient, error) {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	c, err := crclient.New(cfg, crclient.Options{Scheme: scheme.Scheme})
	if err != nil {
		return nil, fmt.Errorf("create cluster client: %w", err)
	}
	return &KubeClient{c: c, logger: logger}, nil
}

// NewKubeClientFor wraps an existing client. Tests use this with a fake.
func NewKubeClientFor(c crclient.Client, logger *zap.Logger) *KubeClient {
	return &KubeClient{c: c, logger: logger}
}

// Reachable probes the cluster API server.
func (k *KubeClient) Reachable(ctx context.Context) error {
	var list corev1.NamespaceList
	if err := k.c.List(ctx, &list, crclient.Limit(1)); err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	return nil
}

// NamespaceExists reports whether the namespace exists.
func (k *KubeClient) NamespaceExists(ctx context.Context, name string) (bool, error) {
	var ns corev1.Namespace
	err := k.c.Get(ctx, crclient.ObjectKey{Name: name}, &ns)
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get namespace %s: %w", name, err)
	}
	return true, nil
}

// CreateNamespace creates the namespace if it does not exist.
func (k *KubeClient) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	err := k.c.Create(ctx, ns)
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace deletes the namespace if it exists.
func (k *KubeClient) DeleteNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	err := k.c.Delete(ctx, ns)
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return nil
}

// PodsReady reports whether at least want pods matching the selector are
// running with every container ready.
func (k *KubeClient) PodsReady(ctx context.Context, namespace string, selector map[string]string, want int) (bool, error) {
	var pods corev1.PodList
	err := k.c.List(ctx, &pods, crclient.InNamespace(namespace), crclient.MatchingLabels(selector))
	if err != nil {
		return false, fmt.Errorf("list pods in %s: %w", namespace, err)
	}

	ready := 0
	for i := range pods.Items {
		if podReady(&pods.Items[i]) {
			ready++
		}
	}
	return ready >= want, nil
}

func podReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	if len(pod.Status.ContainerStatuses) == 0 {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}

// ScaleDeployment sets the replica count of a deployment.
func (k *KubeClient) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	var dep appsv1.Deployment
	if err := k.c.Get(ctx, crclient.ObjectKey{Namespace: namespace, Name: name}, &dep); err != nil {
		return fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}
	dep.Spec.Replicas = &replicas
	if err := k.c.Update(ctx, &dep); err != nil {
		return fmt.Errorf("scale deployment %s/%s: %w", namespace, name, err)
	}
	k.logger.Info("scaled deployment",
		zap.String("namespace", namespace), zap.String("name", name), zap.Int32("replicas", replicas))
	return nil
}

// ListDeployments returns the deployment names in a namespace.
func (k *KubeClient) ListDeployments(ctx context.Context, namespace string) ([]string, error) {
	var deps appsv1.DeploymentList
	if err := k.c.List(ctx, &deps, crclient.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("list deployments in %s: %w", namespace, err)
	}
	names := make([]string, 0, len(deps.Items))
	for _, d := range deps.Items {
		names = append(names, d.Name)
	}
	return names, nil
}

// CreateSecret creates an opaque secret, replacing its data if it exists.
func (k *KubeClient) CreateSecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Type:       corev1.SecretTypeOpaque,
		Data:       data,
	}
	err := k.c.Create(ctx, secret)
	if apierrors.IsAlreadyExists(err) {
		var existing corev1.Secret
		if err := k.c.Get(ctx, crclient.ObjectKey{Namespace: namespace, Name: name}, &existing); err != nil {
			return fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
		}
		existing.Data = data
		if err := k.c.Update(ctx, &existing); err != nil {
			return fmt.Errorf("update secret %s/%s: %w", namespace, name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("create secret %s/%s: %w", namespace, name, err)
	}
	return nil
}

// DeleteSecret deletes a secret if it exists.
func (k *KubeClient) DeleteSecret(ctx context.Context, namespace, name string) error {
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name}}
	err := k.c.Delete(ctx, secret)
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete secret %s/%s: %w", namespace, name, err)
	}
	return nil
}

// GetIngressHosts returns the hosts an ingress currently serves.
func (k *KubeClient) GetIngressHosts(ctx context.Context, namespace, name string) ([]string, error) {
	var ing networkingv1.Ingress
	if err := k.c.Get(ctx, crclient.ObjectKey{Namespace: namespace, Name: name}, &ing); err != nil {
		return nil, fmt.Errorf("get ingress %s/%s: %w", namespace, name, err)
	}
	hosts := make([]string, 0, len(ing.Spec.Rules))
	for _, rule := range ing.Spec.Rules {
		if rule.Host != "" {
			hosts = append(hosts, rule.Host)
		}
	}
	return hosts, nil
}

// ReplaceIngressHosts rewrites the ingress to serve exactly the given hosts.
// The first existing rule's HTTP section is reused as the backend template,
// and each host gets its own routing rule and its own TLS entry so
// certificates are issued per host.
func (k *KubeClient) ReplaceIngressHosts(ctx context.Context, namespace, name string, hosts []string) error {
	var ing networkingv1.Ingress
	if err := k.c.Get(ctx, crclient.ObjectKey{Namespace: namespace, Name: name}, &ing); err != nil {
		return fmt.Errorf("get ingress %s/%s: %w", namespace, name, err)
	}
	if len(ing.Spec.Rules) == 0 || ing.Spec.Rules[0].HTTP == nil {
		return fmt.Errorf("ingress %s/%s has no routing rule to use as a template", namespace, name)
	}

	existingSecrets := map[string]string{}
	for _, t := range ing.Spec.TLS {
		for _, h := range t.Hosts {
			if t.SecretName != "" {
				existingSecrets[h] = t.SecretName
			}
		}
	}

	template := ing.Spec.Rules[0].HTTP.DeepCopy()
	rules := make([]networkingv1.IngressRule, 0, len(hosts))
	tls := make([]networkingv1.IngressTLS, 0, len(hosts))
	for _, host := range hosts {
		rules = append(rules, networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: template.DeepCopy(),
			},
		})
		secretName := existingSecrets[host]
		if secretName == "" {
			secretName = host + "-tls"
		}
		tls = append(tls, networkingv1.IngressTLS{Hosts: []string{host}, SecretName: secretName})
	}
	ing.Spec.Rules = rules
	ing.Spec.TLS = tls

	if err := k.c.Update(ctx, &ing); err != nil {
		return fmt.Errorf("update ingress %s/%s: %w", namespace, name, err)
	}
	k.logger.Info("replaced ingress hosts",
		zap.String("namespace", namespace), zap.String("name", name), zap.Strings("hosts", hosts))
	return nil
}
