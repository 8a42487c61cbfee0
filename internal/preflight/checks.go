package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/oauth2/google"

	"github.com/accelctl/accelctl/internal/accel"
	"github.com/accelctl/accelctl/internal/cloud"
)

// SecretChecker answers whether a named credential secret exists in the
// target cluster. Names only; values are never read.
type SecretChecker interface {
	SecretExists(ctx context.Context, namespace, name string) (bool, error)
}

// SecretRef names a credential secret a workload depends on.
type SecretRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Check is one independent preflight probe.
type Check interface {
	Name() string
	Run(ctx context.Context, in *Input) CheckResult
}

// Input carries everything the check set needs. Inventory-backed checks are
// skipped with a WARN if Inventory is nil (offline mode).
type Input struct {
	Request accel.Request
	Project string
	Region  string

	Inventory cloud.Inventory
	Secrets   SecretChecker

	Tools      []string
	SecretRefs []SecretRef
	CredScopes []string
}

// Indirection for host-environment probes, swapped in tests.
var (
	lookPath        = exec.LookPath
	findCredentials = func(ctx context.Context, scopes ...string) error {
		_, err := google.FindDefaultCredentials(ctx, scopes...)
		return err
	}
)

// toolCheck verifies required CLIs are on PATH.
type toolCheck struct{}

func (toolCheck) Name() string { return "tools" }

func (toolCheck) Run(_ context.Context, in *Input) CheckResult {
	var missing []string
	for _, tool := range in.Tools {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:        "tools",
			Status:      StatusFail,
			Message:     fmt.Sprintf("missing required tools: %s", strings.Join(missing, ", ")),
			Remediation: "install the missing tools and ensure they are on PATH",
		}
	}
	return CheckResult{Name: "tools", Status: StatusPass,
		Message: fmt.Sprintf("all %d required tools found", len(in.Tools))}
}

// credentialCheck verifies application default credentials resolve.
type credentialCheck struct{}

func (credentialCheck) Name() string { return "credentials" }

func (credentialCheck) Run(ctx context.Context, in *Input) CheckResult {
	if err := findCredentials(ctx, in.CredScopes...); err != nil {
		return CheckResult{
			Name:        "credentials",
			Status:      StatusFail,
			Message:     fmt.Sprintf("application default credentials not available: %v", err),
			Remediation: "run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS",
		}
	}
	return CheckResult{Name: "credentials", Status: StatusPass, Message: "application default credentials found"}
}

// topologyCheck validates the request against the machine-type catalog.
type topologyCheck struct{}

func (topologyCheck) Name() string { return "machine-topology" }

func (topologyCheck) Run(_ context.Context, in *Input) CheckResult {
	if err := in.Request.Validate(); err != nil {
		return CheckResult{
			Name:        "machine-topology",
			Status:      StatusFail,
			Message:     err.Error(),
			Remediation: "pick a topology from the machine type's supported set (see 'accelctl check-nodepool')",
		}
	}
	return CheckResult{Name: "machine-topology", Status: StatusPass,
		Message: fmt.Sprintf("%s accepts the requested configuration", in.Request.MachineType)}
}

// zoneCheck asks the inventory whether the zone offers the accelerator.
// Transient inventory failures degrade to WARN: they should not block an
// otherwise valid configuration.
type zoneCheck struct{}

func (zoneCheck) Name() string { return "zone-capability" }

func (zoneCheck) Run(ctx context.Context, in *Input) CheckResult {
	if in.Inventory == nil {
		return CheckResult{Name: "zone-capability", Status: StatusWarn,
			Message: "inventory client unavailable, zone capability not verified"}
	}

	capability, err := in.Inventory.ZoneCapability(ctx, in.Request)
	if err != nil {
		return inventoryErrorResult("zone-capability", err)
	}

	if capability.Available {
		return CheckResult{Name: "zone-capability", Status: StatusPass,
			Message: fmt.Sprintf("%s offers %s", in.Request.Zone, in.Request.MachineType)}
	}

	if len(capability.AlternativeZones) > 0 {
		return CheckResult{
			Name:        "zone-capability",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%s does not offer %s", in.Request.Zone, in.Request.MachineType),
			Remediation: fmt.Sprintf("available in: %s", strings.Join(capability.AlternativeZones, ", ")),
		}
	}
	return CheckResult{
		Name:        "zone-capability",
		Status:      StatusFail,
		Message:     fmt.Sprintf("%s is not offered in %s or any reachable zone", in.Request.MachineType, in.Request.Zone),
		Remediation: "request a different accelerator generation or contact your account team for capacity",
	}
}

// quotaCheck compares the total requested chips against the regional quota.
type quotaCheck struct{}

func (quotaCheck) Name() string { return "quota" }

func (quotaCheck) Run(ctx context.Context, in *Input) CheckResult {
	mt, ok := accel.LookupMachineType(in.Request.MachineType)
	if !ok {
		// machine-topology already reports this; stay quiet here.
		return CheckResult{Name: "quota", Status: StatusWarn,
			Message: fmt.Sprintf("unknown machine type %q, quota metric unresolved", in.Request.MachineType)}
	}
	if in.Inventory == nil {
		return CheckResult{Name: "quota", Status: StatusWarn,
			Message: "inventory client unavailable, quota not verified"}
	}

	snap, err := in.Inventory.Quota(ctx, in.Project, in.Region, mt.QuotaMetric)
	if err != nil {
		return inventoryErrorResult("quota", err)
	}

	required := float64(in.Request.TotalChips())
	if snap.Available() < required {
		return CheckResult{
			Name:   "quota",
			Status: StatusFail,
			Message: fmt.Sprintf("quota %s in %s: need %.0f, have %.0f available (limit %.0f, used %.0f)",
				snap.Metric, snap.Region, required, snap.Available(), snap.Limit, snap.Used),
			Remediation: fmt.Sprintf("request a quota increase for %s in %s via the cloud console quotas page",
				snap.Metric, snap.Region),
		}
	}
	return CheckResult{Name: "quota", Status: StatusPass,
		Message: fmt.Sprintf("quota %s: %.0f of %.0f available, need %.0f",
			snap.Metric, snap.Available(), snap.Limit, required)}
}

// secretCheck confirms referenced credential secrets exist by name.
type secretCheck struct{}

func (secretCheck) Name() string { return "secrets" }

func (secretCheck) Run(ctx context.Context, in *Input) CheckResult {
	if len(in.SecretRefs) == 0 {
		return CheckResult{Name: "secrets", Status: StatusPass, Message: "no credential secrets declared"}
	}
	if in.Secrets == nil {
		return CheckResult{Name: "secrets", Status: StatusWarn,
			Message: "no cluster connection, credential secrets not verified"}
	}

	var missing []string
	var unverified []string
	for _, ref := range in.SecretRefs {
		exists, err := in.Secrets.SecretExists(ctx, ref.Namespace, ref.Name)
		if err != nil {
			unverified = append(unverified, ref.Namespace+"/"+ref.Name)
			continue
		}
		if !exists {
			missing = append(missing, ref.Namespace+"/"+ref.Name)
		}
	}

	switch {
	case len(missing) > 0:
		return CheckResult{
			Name:        "secrets",
			Status:      StatusFail,
			Message:     fmt.Sprintf("missing credential secrets: %s", strings.Join(missing, ", ")),
			Remediation: "create the secrets before deploying, e.g. 'kubectl create secret generic <name>'",
		}
	case len(unverified) > 0:
		return CheckResult{
			Name:        "secrets",
			Status:      StatusWarn,
			Message:     fmt.Sprintf("could not verify secrets: %s", strings.Join(unverified, ", ")),
			Remediation: "re-run preflight once the cluster API is reachable",
		}
	default:
		return CheckResult{Name: "secrets", Status: StatusPass,
			Message: fmt.Sprintf("all %d credential secrets present", len(in.SecretRefs))}
	}
}

// inventoryErrorResult maps a classified inventory error to a check result:
// transient degrades to WARN with a retry hint, everything definitive fails.
func inventoryErrorResult(name string, err error) CheckResult {
	switch cloud.ErrKind(err) {
	case cloud.KindTransient, cloud.KindTimeout:
		return CheckResult{
			Name:        name,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("inventory query failed transiently: %v", err),
			Remediation: "re-run preflight; the control plane did not give a definitive answer",
		}
	case cloud.KindAccessDenied:
		return CheckResult{
			Name:        name,
			Status:      StatusFail,
			Message:     err.Error(),
			Remediation: "grant the caller compute.viewer (or broader) on the project",
		}
	case cloud.KindNotFound:
		return CheckResult{
			Name:        name,
			Status:      StatusFail,
			Message:     err.Error(),
			Remediation: "check the project, region, and zone spelling",
		}
	default:
		return CheckResult{Name: name, Status: StatusFail, Message: err.Error()}
	}
}
