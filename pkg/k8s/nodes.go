package k8s

import (
	"context"
	"errors"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apitypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// Control plane node label keys
const (
	// Standard Kubernetes control plane label (k8s 1.24+)
	LabelControlPlane = "node-role.kubernetes.io/control-plane"
	// Legacy master label (deprecated but still common)
	LabelMaster = "node-role.kubernetes.io/master"
)

// DiscoverNodes lists cluster nodes matching the label selector and returns
// their names sorted. Control plane nodes are skipped unless asked for.
func DiscoverNodes(ctx context.Context, clientset kubernetes.Interface, labelSelector string, includeControlPlane bool) ([]string, error) {
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	var names []string
	for _, node := range nodes.Items {
		if !includeControlPlane && isControlPlaneFromLabels(node.Labels) {
			continue
		}
		names = append(names, node.Name)
	}

	sort.Strings(names)
	return names, nil
}

// isControlPlaneFromLabels checks if the given labels indicate a control plane node
func isControlPlaneFromLabels(labels map[string]string) bool {
	if labels == nil {
		return false
	}

	// Check for control-plane label (value doesn't matter, just presence)
	if _, ok := labels[LabelControlPlane]; ok {
		return true
	}

	// Check for legacy master label
	if _, ok := labels[LabelMaster]; ok {
		return true
	}

	return false
}

// CordonNodes marks the given nodes unschedulable so the cluster scheduler
// stops placing work on them. A failure on one node does not stop the rest;
// the nodes actually cordoned come back alongside the joined failures.
func CordonNodes(ctx context.Context, clientset kubernetes.Interface, nodes []string) ([]string, error) {
	patch := []byte(`{"spec":{"unschedulable":true}}`)

	var cordoned []string
	var errs []error
	for _, node := range nodes {
		_, err := clientset.CoreV1().Nodes().Patch(ctx, node, apitypes.StrategicMergePatchType, patch, metav1.PatchOptions{})
		if err != nil {
			errs = append(errs, fmt.Errorf("cordoning node %s: %w", node, err))
			continue
		}
		cordoned = append(cordoned, node)
	}

	return cordoned, errors.Join(errs...)
}
