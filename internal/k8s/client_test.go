package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	crfake "sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func int32p(v int32) *int32 { return &v }

func TestSecretExists(t *testing.T) {
	clientset := k8sfake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "hf-token"},
	})
	c := NewFromInterfaces(clientset, nil)

	exists, err := c.SecretExists(context.Background(), "serving", "hf-token")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.SecretExists(context.Background(), "serving", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeploymentAvailable(t *testing.T) {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "model-server"},
		Spec:       appsv1.DeploymentSpec{Replicas: int32p(2)},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas: 2,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
			},
		},
	}
	c := NewFromInterfaces(k8sfake.NewSimpleClientset(dep), nil)

	ok, msg, err := c.DeploymentAvailable(context.Background(), "serving", "model-server")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2/2 replicas ready", msg)
}

func TestDeploymentAvailablePartialRollout(t *testing.T) {
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "model-server"},
		Spec:       appsv1.DeploymentSpec{Replicas: int32p(3)},
		Status: appsv1.DeploymentStatus{
			ReadyReplicas: 1,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
			},
		},
	}
	c := NewFromInterfaces(k8sfake.NewSimpleClientset(dep), nil)

	ok, msg, err := c.DeploymentAvailable(context.Background(), "serving", "model-server")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "1/3 replicas ready", msg)
}

func TestDeploymentAvailableNotFound(t *testing.T) {
	c := NewFromInterfaces(k8sfake.NewSimpleClientset(), nil)

	ok, msg, err := c.DeploymentAvailable(context.Background(), "serving", "model-server")
	require.NoError(t, err, "not-found is a state, not an error")
	assert.False(t, ok)
	assert.Contains(t, msg, "not found")
}

func readyPod(name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: "serving", Name: name,
			Labels: map[string]string{"app": "model-server"},
		},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
		},
	}
}

func TestPodsReady(t *testing.T) {
	pending := readyPod("worker-1")
	pending.Status.Phase = corev1.PodPending
	pending.Status.Conditions = nil

	tests := []struct {
		name    string
		pods    []runtime.Object
		want    bool
		wantMsg string
	}{
		{"all ready", []runtime.Object{readyPod("worker-0"), readyPod("worker-2")}, true, "2/2 pods ready"},
		{"one pending", []runtime.Object{readyPod("worker-0"), pending}, false, "1/2 pods ready"},
		{"none scheduled", nil, false, `no pods match selector "app=model-server"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFromInterfaces(k8sfake.NewSimpleClientset(tt.pods...), nil)
			ok, msg, err := c.PodsReady(context.Background(), "serving", "app=model-server")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestServiceHasAddress(t *testing.T) {
	lb := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "model-lb"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
		Status: corev1.ServiceStatus{LoadBalancer: corev1.LoadBalancerStatus{
			Ingress: []corev1.LoadBalancerIngress{{IP: "203.0.113.20"}},
		}},
	}
	pendingLB := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "pending-lb"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
	}
	clusterIP := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Namespace: "serving", Name: "internal"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP, ClusterIP: "10.0.0.5"},
	}
	c := NewFromInterfaces(k8sfake.NewSimpleClientset(lb, pendingLB, clusterIP), nil)

	ok, msg, err := c.ServiceHasAddress(context.Background(), "serving", "model-lb")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, msg, "203.0.113.20")

	ok, msg, err = c.ServiceHasAddress(context.Background(), "serving", "pending-lb")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, msg, "pending")

	ok, _, err = c.ServiceHasAddress(context.Background(), "serving", "internal")
	require.NoError(t, err)
	assert.True(t, ok, "non-LoadBalancer services are addressable once present")
}

func TestCustomResourceReady(t *testing.T) {
	gvk := schema.GroupVersionKind{Group: "serving.example.dev", Version: "v1alpha1", Kind: "InferenceService"}

	scheme := runtime.NewScheme()
	scheme.AddKnownTypeWithName(gvk, &unstructured.Unstructured{})
	scheme.AddKnownTypeWithName(gvk.GroupVersion().WithKind(gvk.Kind+"List"), &unstructured.UnstructuredList{})

	ready := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"namespace": "serving", "name": "llm"},
		"status": map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"type": "Ready", "status": "True"},
			},
		},
	}}
	ready.SetGroupVersionKind(gvk)

	notReady := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"namespace": "serving", "name": "llm-canary"},
		"status": map[string]interface{}{
			"conditions": []interface{}{
				map[string]interface{}{"type": "Ready", "status": "False", "message": "waiting for revision"},
			},
		},
	}}
	notReady.SetGroupVersionKind(gvk)

	dyn := crfake.NewClientBuilder().WithScheme(scheme).WithObjects(ready, notReady).Build()
	c := NewFromInterfaces(k8sfake.NewSimpleClientset(), dyn)

	ok, _, err := c.CustomResourceReady(context.Background(), gvk, "serving", "llm")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, msg, err := c.CustomResourceReady(context.Background(), gvk, "serving", "llm-canary")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "waiting for revision", msg)

	ok, msg, err = c.CustomResourceReady(context.Background(), gvk, "serving", "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, msg, "not found")
}
