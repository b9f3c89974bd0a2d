package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodSummary counts pods expected to be serving. Completed pods are ignored.
type PodSummary struct {
	Total    int
	Ready    int
	NotReady []string
}

func (s PodSummary) AllReady() bool {
	return s.Total > 0 && s.Ready == s.Total
}

// SummarizePods lists pods in namespace matching selector. An empty selector
// matches everything.
func SummarizePods(ctx context.Context, cs kubernetes.Interface, namespace, selector string) (PodSummary, error) {
	list, err := cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return PodSummary{}, fmt.Errorf("listing pods in %s: %w", namespace, err)
	}

	var s PodSummary
	for _, p := range list.Items {
		if p.Status.Phase == corev1.PodSucceeded {
			continue
		}
		s.Total++
		if podReady(p) {
			s.Ready++
		} else {
			s.NotReady = append(s.NotReady, fmt.Sprintf("%s (%s)", p.Name, p.Status.Phase))
		}
	}
	return s, nil
}

func podReady(p corev1.Pod) bool {
	if p.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, c := range p.Status.Conditions {
		if c.Type == corev1.PodReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
