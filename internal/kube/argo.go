package kube

import (
	"context"
	"errors"
	"fmt"
	"sort"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

// ErrArgoCDNotInstalled is returned when the Application CRD is not served.
var ErrArgoCDNotInstalled = errors.New("Argo CD Application CRD not installed")

var ApplicationGVR = schema.GroupVersionResource{Group: "argoproj.io", Version: "v1alpha1", Resource: "applications"}

// Application is the sync and health status Argo CD reports for one app.
type Application struct {
	Name      string
	Namespace string
	Sync      string
	Health    string
}

func (a Application) Healthy() bool {
	return a.Sync == "Synced" && a.Health == "Healthy"
}

// ListApplications reads Argo CD Applications in every namespace.
func ListApplications(ctx context.Context, dyn dynamic.Interface) ([]Application, error) {
	list, err := dyn.Resource(ApplicationGVR).Namespace(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, ErrArgoCDNotInstalled
		}
		return nil, fmt.Errorf("listing Argo CD applications: %w", err)
	}

	apps := make([]Application, 0, len(list.Items))
	for _, item := range list.Items {
		sync, _, _ := unstructured.NestedString(item.Object, "status", "sync", "status")
		health, _, _ := unstructured.NestedString(item.Object, "status", "health", "status")
		apps = append(apps, Application{
			Name:      item.GetName(),
			Namespace: item.GetNamespace(),
			Sync:      orUnknown(sync),
			Health:    orUnknown(health),
		})
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
