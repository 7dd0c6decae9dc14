package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/wenwu/saas-platform/tenant-service/internal/models"
)

// HelmClient drives the helm binary as a subprocess. Release values are
// written to a temporary file so secrets never appear in the process argv.
type HelmClient struct {
	binary string
	chart  string
	logger *zap.Logger
}

// NewHelmClient creates a new helm client for one chart.
func NewHelmClient(binary, chart string, logger *zap.Logger) *HelmClient {
	return &HelmClient{binary: binary, chart: chart, logger: logger}
}

// Available checks that the helm binary runs.
func (h *HelmClient) Available(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, h.binary, "version", "--short").CombinedOutput()
	if err != nil {
		return fmt.Errorf("helm unavailable: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// InstallOrUpgrade installs the release if absent, upgrades it otherwise, and
// returns helm's raw output. The chart creates the namespace when missing.
func (h *HelmClient) InstallOrUpgrade(ctx context.Context, release, namespace string, values *models.DeploymentDescriptor, timeout time.Duration) (string, error) {
	raw, err := yaml.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}

	valuesFile, err := os.CreateTemp("", "tenant-values-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create values file: %w", err)
	}
	defer os.Remove(valuesFile.Name())

	if _, err := valuesFile.Write(raw); err != nil {
		valuesFile.Close()
		return "", fmt.Errorf("write values file: %w", err)
	}
	if err := valuesFile.Close(); err != nil {
		return "", fmt.Errorf("close values file: %w", err)
	}

	args := []string{
		"upgrade", "--install", release, h.chart,
		"--namespace", namespace,
		"--create-namespace",
		"--values", valuesFile.Name(),
		"--wait=false",
		"--timeout", timeout.String(),
	}

	h.logger.Info("running helm upgrade",
		zap.String("release", release), zap.String("namespace", namespace))

	out, err := exec.CommandContext(ctx, h.binary, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("helm upgrade %s: %v: %s", release, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// Uninstall removes a release. A missing release is not an error.
func (h *HelmClient) Uninstall(ctx context.Context, release, namespace string) error {
	out, err := exec.CommandContext(ctx, h.binary,
		"uninstall", release, "--namespace", namespace).CombinedOutput()
	if err != nil {
		if strings.Contains(string(out), "not found") {
			return nil
		}
		return fmt.Errorf("helm uninstall %s: %v: %s", release, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Status returns the release status string.
func (h *HelmClient) Status(ctx context.Context, release, namespace string) (string, error) {
	out, err := exec.CommandContext(ctx, h.binary,
		"status", release, "--namespace", namespace, "-o", "json").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("helm status %s: %v: %s", release, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// List returns the release names in a namespace.
func (h *HelmClient) List(ctx context.Context, namespace string) ([]string, error) {
	out, err := exec.CommandContext(ctx, h.binary,
		"list", "--namespace", namespace, "--short").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("helm list: %v: %s", err, strings.TrimSpace(string(out)))
	}

	var releases []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			releases = append(releases, line)
		}
	}
	return releases, nil
}
