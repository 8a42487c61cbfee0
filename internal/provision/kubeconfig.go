package provision

import (
	"fmt"
	"os"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/accelctl/accelctl/internal/cloud"
)

// FileKubeconfig writes cluster entries into a kubeconfig file, merging with
// whatever is already there. Authentication delegates to the platform's exec
// credential plugin so no token ever lands on disk.
type FileKubeconfig struct {
	Path string
}

var _ KubeconfigWriter = (*FileKubeconfig)(nil)

// NewFileKubeconfig targets path, falling back to the standard location when
// path is empty.
func NewFileKubeconfig(path string) *FileKubeconfig {
	if path == "" {
		path = clientcmd.RecommendedHomeFile
	}
	return &FileKubeconfig{Path: path}
}

// HasEntry reports whether contextName already points at the cluster's
// current endpoint. A stale endpoint counts as missing so re-runs repair
// entries after cluster recreation.
func (k *FileKubeconfig) HasEntry(contextName string, cluster *cloud.ClusterInfo) (bool, error) {
	cfg, err := k.load()
	if err != nil {
		return false, err
	}
	entry, ok := cfg.Clusters[contextName]
	if !ok {
		return false, nil
	}
	return entry.Server == "https://"+cluster.Endpoint, nil
}

// WriteEntry adds or replaces the cluster, user, and context entries and
// leaves the current context pointing at the new cluster.
func (k *FileKubeconfig) WriteEntry(contextName string, cluster *cloud.ClusterInfo) error {
	cfg, err := k.load()
	if err != nil {
		return err
	}

	cfg.Clusters[contextName] = &clientcmdapi.Cluster{
		Server:                   "https://" + cluster.Endpoint,
		CertificateAuthorityData: cluster.CACert,
	}
	cfg.AuthInfos[contextName] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:         "client.authentication.k8s.io/v1beta1",
			Command:            "gke-gcloud-auth-plugin",
			InstallHint:        "install gke-gcloud-auth-plugin via 'gcloud components install gke-gcloud-auth-plugin'",
			ProvideClusterInfo: true,
			InteractiveMode:    clientcmdapi.IfAvailableExecInteractiveMode,
		},
	}
	cfg.Contexts[contextName] = &clientcmdapi.Context{
		Cluster:  contextName,
		AuthInfo: contextName,
	}
	cfg.CurrentContext = contextName

	if err := clientcmd.WriteToFile(*cfg, k.Path); err != nil {
		return fmt.Errorf("write kubeconfig %s: %w", k.Path, err)
	}
	return nil
}

func (k *FileKubeconfig) load() (*clientcmdapi.Config, error) {
	cfg, err := clientcmd.LoadFromFile(k.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return clientcmdapi.NewConfig(), nil
		}
		return nil, fmt.Errorf("load kubeconfig %s: %w", k.Path, err)
	}
	return cfg, nil
}
