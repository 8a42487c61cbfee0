// Package k8s wraps the in-cluster API access the verifier and preflight
// need: secret existence by name, and readiness reads for workloads, services
// and custom resources. It never reads secret values.
package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	crclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// Client bundles a typed clientset for core resources with a dynamic
// controller-runtime client for custom resources.
type Client struct {
	clientset kubernetes.Interface
	dynamic   crclient.Client
}

// New builds a client from a kubeconfig path and optional context name. An
// empty path falls back to the standard loading rules (KUBECONFIG, then the
// home-directory file).
func New(kubeconfigPath, contextName string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return NewFromRESTConfig(cfg)
}

// NewFromRESTConfig builds a client from an already-resolved REST config.
func NewFromRESTConfig(cfg *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	dyn, err := crclient.New(cfg, crclient.Options{})
	if err != nil {
		return nil, fmt.Errorf("build dynamic client: %w", err)
	}
	return &Client{clientset: clientset, dynamic: dyn}, nil
}

// NewFromInterfaces wires pre-built clients, used by tests with fakes.
func NewFromInterfaces(clientset kubernetes.Interface, dynamic crclient.Client) *Client {
	return &Client{clientset: clientset, dynamic: dynamic}
}

// SecretExists reports whether the named secret exists. Only metadata is
// requested; the value is never returned to the caller.
func (c *Client) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
	}
	return true, nil
}

// DeploymentAvailable reports whether the deployment's Available condition is
// true and all desired replicas are ready.
func (c *Client) DeploymentAvailable(ctx context.Context, namespace, name string) (bool, string, error) {
	dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, fmt.Sprintf("deployment %s/%s not found", namespace, name), nil
		}
		return false, "", fmt.Errorf("get deployment %s/%s: %w", namespace, name, err)
	}

	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	for _, cond := range dep.Status.Conditions {
		if cond.Type == appsv1.DeploymentAvailable && cond.Status == corev1.ConditionTrue &&
			dep.Status.ReadyReplicas == desired {
			return true, fmt.Sprintf("%d/%d replicas ready", dep.Status.ReadyReplicas, desired), nil
		}
	}
	return false, fmt.Sprintf("%d/%d replicas ready", dep.Status.ReadyReplicas, desired), nil
}

// PodsReady reports whether every pod matching the label selector is Running
// with a true Ready condition. Zero matching pods is not ready: the workload
// has not scheduled yet.
func (c *Client) PodsReady(ctx context.Context, namespace, selector string) (bool, string, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return false, "", fmt.Errorf("list pods %s [%s]: %w", namespace, selector, err)
	}
	if len(pods.Items) == 0 {
		return false, fmt.Sprintf("no pods match selector %q", selector), nil
	}

	ready := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		for _, cond := range pod.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				ready++
				break
			}
		}
	}
	return ready == len(pods.Items), fmt.Sprintf("%d/%d pods ready", ready, len(pods.Items)), nil
}

// ServiceHasAddress reports whether a LoadBalancer service has been assigned
// an ingress IP or hostname. Non-LoadBalancer services are addressable as
// soon as they exist.
func (c *Client) ServiceHasAddress(ctx context.Context, namespace, name string) (bool, string, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, fmt.Sprintf("service %s/%s not found", namespace, name), nil
		}
		return false, "", fmt.Errorf("get service %s/%s: %w", namespace, name, err)
	}

	if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
		return true, fmt.Sprintf("service type %s, cluster IP %s", svc.Spec.Type, svc.Spec.ClusterIP), nil
	}
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return true, "ingress IP " + ing.IP, nil
		}
		if ing.Hostname != "" {
			return true, "ingress host " + ing.Hostname, nil
		}
	}
	return false, "load balancer address pending", nil
}

// CustomResourceReady reads an arbitrary custom resource and reports whether
// its status carries a Ready condition set to True. Resources without status
// conditions report not ready with an explanatory message.
func (c *Client) CustomResourceReady(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (bool, string, error) {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	if err := c.dynamic.Get(ctx, crclient.ObjectKey{Namespace: namespace, Name: name}, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return false, fmt.Sprintf("%s %s/%s not found", gvk.Kind, namespace, name), nil
		}
		return false, "", fmt.Errorf("get %s %s/%s: %w", gvk.Kind, namespace, name, err)
	}

	conditions, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil || !found {
		return false, fmt.Sprintf("%s %s/%s has no status conditions yet", gvk.Kind, namespace, name), nil
	}
	for _, raw := range conditions {
		cond, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] == "Ready" {
			if cond["status"] == "True" {
				return true, "Ready condition true", nil
			}
			msg, _ := cond["message"].(string)
			if msg == "" {
				msg = "Ready condition " + fmt.Sprint(cond["status"])
			}
			return false, msg, nil
		}
	}
	return false, fmt.Sprintf("%s %s/%s has no Ready condition", gvk.Kind, namespace, name), nil
}
