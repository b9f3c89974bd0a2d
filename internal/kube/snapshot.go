package kube

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/yaml"
)

// list mirrors the envelope `kubectl get -o yaml` prints.
type list struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Items      []any  `json:"items"`
}

func marshalList(items []any) ([]byte, error) {
	if items == nil {
		items = []any{}
	}
	return yaml.Marshal(list{APIVersion: "v1", Kind: "List", Items: items})
}

// NodesYAML serialises every node.
func NodesYAML(ctx context.Context, cs kubernetes.Interface) ([]byte, error) {
	l, err := cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	items := make([]any, 0, len(l.Items))
	for i := range l.Items {
		n := l.Items[i]
		n.APIVersion, n.Kind = "v1", "Node"
		n.ManagedFields = nil
		items = append(items, n)
	}
	return marshalList(items)
}

// ConfigMapsYAML serialises config maps in all namespaces.
func ConfigMapsYAML(ctx context.Context, cs kubernetes.Interface) ([]byte, error) {
	l, err := cs.CoreV1().ConfigMaps(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing config maps: %w", err)
	}
	items := make([]any, 0, len(l.Items))
	for i := range l.Items {
		cm := l.Items[i]
		cm.APIVersion, cm.Kind = "v1", "ConfigMap"
		cm.ManagedFields = nil
		items = append(items, cm)
	}
	return marshalList(items)
}

// SecretsYAML serialises secrets in all namespaces. The output holds secret
// material and must be stored accordingly.
func SecretsYAML(ctx context.Context, cs kubernetes.Interface) ([]byte, error) {
	l, err := cs.CoreV1().Secrets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing secrets: %w", err)
	}
	items := make([]any, 0, len(l.Items))
	for i := range l.Items {
		s := l.Items[i]
		s.APIVersion, s.Kind = "v1", "Secret"
		s.ManagedFields = nil
		items = append(items, s)
	}
	return marshalList(items)
}
