package kube

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

var defaultClassAnnotations = []string{
	"storageclass.kubernetes.io/is-default-class",
	"storageclass.beta.kubernetes.io/is-default-class",
}

type StorageClass struct {
	Name        string
	Provisioner string
	Default     bool
}

func ListStorageClasses(ctx context.Context, cs kubernetes.Interface) ([]StorageClass, error) {
	list, err := cs.StorageV1().StorageClasses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing storage classes: %w", err)
	}

	classes := make([]StorageClass, 0, len(list.Items))
	for _, sc := range list.Items {
		isDefault := false
		for _, a := range defaultClassAnnotations {
			if sc.Annotations[a] == "true" {
				isDefault = true
			}
		}
		classes = append(classes, StorageClass{
			Name:        sc.Name,
			Provisioner: sc.Provisioner,
			Default:     isDefault,
		})
	}
	return classes, nil
}
