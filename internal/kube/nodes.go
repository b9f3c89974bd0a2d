// Package kube holds the Kubernetes reads eksops makes through client-go.
package kube

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const nodegroupLabel = "eks.amazonaws.com/nodegroup"

type Node struct {
	Name           string
	Ready          bool
	KubeletVersion string
	Nodegroup      string
	InstanceID     string
}

// ListNodes returns every node sorted by name.
func ListNodes(ctx context.Context, cs kubernetes.Interface) ([]Node, error) {
	list, err := cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	nodes := make([]Node, 0, len(list.Items))
	for _, n := range list.Items {
		nodes = append(nodes, Node{
			Name:           n.Name,
			Ready:          nodeReady(n),
			KubeletVersion: n.Status.NodeInfo.KubeletVersion,
			Nodegroup:      n.Labels[nodegroupLabel],
			InstanceID:     instanceID(n.Spec.ProviderID),
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

func nodeReady(n corev1.Node) bool {
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

// instanceID extracts i-0abc from aws:///us-east-1a/i-0abc.
func instanceID(providerID string) string {
	if !strings.HasPrefix(providerID, "aws://") {
		return ""
	}
	return providerID[strings.LastIndex(providerID, "/")+1:]
}

// NotReady returns the names of nodes that are not Ready.
func NotReady(nodes []Node) []string {
	var names []string
	for _, n := range nodes {
		if !n.Ready {
			names = append(names, n.Name)
		}
	}
	return names
}
