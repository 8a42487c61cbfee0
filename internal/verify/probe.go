package verify

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/accelctl/accelctl/internal/k8s"
)

// ClusterProbe dispatches component checks to the cluster API client.
type ClusterProbe struct {
	Client *k8s.Client
}

var _ Probe = (*ClusterProbe)(nil)

func (p *ClusterProbe) Check(ctx context.Context, c Component) (bool, string, error) {
	switch c.Kind {
	case KindDeployment:
		return p.Client.DeploymentAvailable(ctx, c.Namespace, c.Name)
	case KindPods:
		return p.Client.PodsReady(ctx, c.Namespace, c.Selector)
	case KindService:
		return p.Client.ServiceHasAddress(ctx, c.Namespace, c.Name)
	case KindCustomResource:
		gv, err := schema.ParseGroupVersion(c.APIVersion)
		if err != nil {
			return false, "", fmt.Errorf("component %s: bad apiVersion %q: %w", c, c.APIVersion, err)
		}
		return p.Client.CustomResourceReady(ctx, gv.WithKind(c.ResourceKind), c.Namespace, c.Name)
	default:
		return false, "", fmt.Errorf("component %s: unknown kind %q", c, c.Kind)
	}
}
