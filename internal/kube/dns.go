package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
)

const dnsLookupTarget = "kubernetes.default.svc.cluster.local"

// DNSTest describes the throwaway pod used to check in-cluster resolution.
type DNSTest struct {
	Namespace string
	Image     string
	Interval  time.Duration
	Timeout   time.Duration
}

// DNSResult is the terminal phase of the smoke pod. TimedOut is set when the
// pod never finished within the timeout.
type DNSResult struct {
	Pod      string
	Phase    corev1.PodPhase
	TimedOut bool
}

// Run creates the smoke pod, waits for it to finish and deletes it.
func (t DNSTest) Run(ctx context.Context, cs kubernetes.Interface) (DNSResult, error) {
	if t.Namespace == "" {
		t.Namespace = metav1.NamespaceDefault
	}
	if t.Interval <= 0 {
		t.Interval = 2 * time.Second
	}
	if t.Timeout <= 0 {
		t.Timeout = 2 * time.Minute
	}

	name := "eksops-dns-test-" + uuid.NewString()[:8]
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: t.Namespace,
			Labels:    map[string]string{"app.kubernetes.io/managed-by": "eksops"},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{{
				Name:    "nslookup",
				Image:   t.Image,
				Command: []string{"nslookup", dnsLookupTarget},
			}},
		},
	}

	if _, err := cs.CoreV1().Pods(t.Namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return DNSResult{}, fmt.Errorf("creating DNS test pod: %w", err)
	}
	defer func() {
		// The run context may already be cancelled.
		dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := cs.CoreV1().Pods(t.Namespace).Delete(dctx, name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			log.WithError(err).WithField("pod", name).Warn("could not delete DNS test pod")
		}
	}()

	res := DNSResult{Pod: name}
	err := wait.PollUntilContextTimeout(ctx, t.Interval, t.Timeout, true, func(ctx context.Context) (bool, error) {
		p, err := cs.CoreV1().Pods(t.Namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			log.WithError(err).Debug("polling DNS test pod")
			return false, nil
		}
		res.Phase = p.Status.Phase
		return p.Status.Phase == corev1.PodSucceeded || p.Status.Phase == corev1.PodFailed, nil
	})
	if err != nil {
		if ctx.Err() == nil && (wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded)) {
			res.TimedOut = true
			return res, nil
		}
		return res, fmt.Errorf("waiting for DNS test pod: %w", err)
	}
	return res, nil
}
