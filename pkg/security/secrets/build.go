package secrets

import (
	"time"

	"mercator-hq/jupiter-gateway/pkg/config"
)

// BuildManager constructs a Manager from its configuration, wiring one
// SecretProvider per configured entry in the order given. Providers are
// tried in that order by Manager.GetSecret and Manager.ResolveReferences.
//
// An unknown provider type or a file provider that fails to start its
// watcher is skipped with a log line rather than failing startup; secret
// resolution degrades to whichever providers did construct successfully.
func BuildManager(cfg *config.SecretsConfig) *Manager {
	providers := make([]SecretProvider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		provider := buildProvider(pc)
		if provider != nil {
			providers = append(providers, provider)
		}
	}

	ttl := 5 * time.Minute
	if cfg.Cache.TTL != "" {
		if parsed, err := time.ParseDuration(cfg.Cache.TTL); err == nil {
			ttl = parsed
		}
	}
	maxSize := cfg.Cache.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}

	return NewManager(providers, CacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     ttl,
		MaxSize: maxSize,
	})
}

func buildProvider(pc config.SecretProviderConfig) SecretProvider {
	switch pc.Type {
	case "env":
		return NewEnvProvider(pc.Prefix)
	case "file":
		provider, err := NewFileProvider(pc.Path, pc.Watch)
		if err != nil {
			return nil
		}
		return provider
	case "vault":
		return NewVaultProvider(pc.Address, pc.Token, pc.VaultPath, pc.Enabled)
	case "aws_kms":
		return NewAWSKMSProvider(pc.Region, pc.KeyID, pc.Enabled)
	case "gcp_kms":
		return NewGCPKMSProvider(pc.Project, pc.Location, pc.KeyRing, pc.Key, pc.Enabled)
	default:
		return nil
	}
}
