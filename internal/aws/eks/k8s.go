package eks

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// K8sClient bundles the typed and dynamic clients for one EKS cluster, both
// authenticated through the same TokenProvider.
type K8sClient struct {
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
	Token     *TokenProvider
	Config    *rest.Config
}

func NewK8sClient(cluster Cluster, tokenProvider *TokenProvider) (*K8sClient, error) {
	if cluster.Endpoint == "" {
		return nil, errors.New("cluster has no API endpoint")
	}
	ca, err := base64.StdEncoding.DecodeString(cluster.CertAuthority)
	if err != nil {
		return nil, fmt.Errorf("decode CA: %w", err)
	}

	config := &rest.Config{
		Host: cluster.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{
			CAData: ca,
		},
		WrapTransport: tokenProvider.WrapTransport,
		Timeout:       30 * time.Second,
		UserAgent:     "eksops",
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create K8s client: %w", err)
	}
	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return &K8sClient{
		Clientset: clientset,
		Dynamic:   dyn,
		Token:     tokenProvider,
		Config:    config,
	}, nil
}
