package config

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lrproduhub/n8nctl/internal/tlsutil"
)

var (
	errClusterName   = errors.New("cluster name must be 1-40 characters, lowercase alphanumeric and hyphens, starting with a letter")
	errEncryptionKey = errors.New("encryption key must be exactly 64 hexadecimal characters")
	errDomain        = errors.New("domain must be a fully qualified domain name")
	errEmail         = errors.New("email address is not valid")
	errNodeCounts    = errors.New("node counts must satisfy 1 <= min <= desired <= max")
	errPersistence   = errors.New("persistence size must be like 10Gi or 512Mi")
	errProvider      = errors.New("provider must be aws or azure")
	errDatabase      = errors.New("database engine must be sqlite or postgresql")
	errTLSMode       = errors.New("tls mode must be none, byo, or letsencrypt")
	errACMEEnv       = errors.New("letsencrypt environment must be staging or production")
	errUsername      = errors.New("username must be 1-32 characters, alphanumeric with dots, hyphens, and underscores")
)

var (
	clusterNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,39}$`)
	hexKeyRegex      = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	domainRegex      = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
	emailRegex       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	persistenceRegex = regexp.MustCompile(`^[1-9][0-9]*(Gi|Mi)$`)
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,31}$`)
)

// ValidateClusterName checks a cluster name against the naming rules both
// clouds accept.
func ValidateClusterName(name string) error {
	if !clusterNameRegex.MatchString(name) {
		return errClusterName
	}
	return nil
}

// ValidateEncryptionKey checks a user-supplied n8n encryption key. A key
// that fails here must abort the run: deploying with a malformed key would
// strand every credential n8n encrypts with it.
func ValidateEncryptionKey(key string) error {
	if !hexKeyRegex.MatchString(key) {
		return errEncryptionKey
	}
	return nil
}

// ValidateDomain checks a fully qualified domain name.
func ValidateDomain(domain string) error {
	if len(domain) > 253 || !domainRegex.MatchString(domain) {
		return errDomain
	}
	return nil
}

// ValidateEmail checks an email address for the ACME registration.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return errEmail
	}
	return nil
}

// ValidateNodeCounts checks the node group sizing invariant.
func ValidateNodeCounts(min, desired, max int) error {
	if min < 1 || desired < min || max < desired {
		return errNodeCounts
	}
	return nil
}

// ValidatePersistence checks a Kubernetes storage quantity like "10Gi".
func ValidatePersistence(size string) error {
	if !persistenceRegex.MatchString(size) {
		return errPersistence
	}
	return nil
}

// ValidateUsername checks a basic-auth username.
func ValidateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return errUsername
	}
	return nil
}

// ParsePositiveInt converts wizard input into a positive integer.
func ParsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer, got %q", s)
	}
	return n, nil
}

// Validate checks the whole configuration for internal consistency. The
// wizard validates field by field; this is the final gate before anything
// is written to disk, and the only gate for configs loaded from a previous
// run.
func (c *Config) Validate() error {
	if c.Provider != ProviderAWS && c.Provider != ProviderAzure {
		return errProvider
	}
	if err := ValidateClusterName(c.ClusterName); err != nil {
		return err
	}
	if c.Region == "" {
		return errors.New("region is required")
	}
	if err := ValidateNodeCounts(c.Nodes.MinCount, c.Nodes.DesiredCount, c.Nodes.MaxCount); err != nil {
		return err
	}
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if err := ValidatePersistence(c.Persistence); err != nil {
		return err
	}
	if c.EncryptionKey != "" {
		if err := ValidateEncryptionKey(c.EncryptionKey); err != nil {
			return err
		}
	}

	switch c.Database.Engine {
	case DatabaseSQLite:
	case DatabasePostgres:
		if c.Provider == ProviderAWS && c.Database.InstanceClass == "" {
			return errors.New("postgresql on aws requires an instance class")
		}
		if c.Provider == ProviderAzure && c.Database.SKU == "" {
			return errors.New("postgresql on azure requires a sku")
		}
	default:
		return errDatabase
	}

	switch c.TLS.Mode {
	case TLSModeNone, "":
	case TLSModeBYO:
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return errors.New("byo tls requires certificate and key files")
		}
		// Malformed, mismatched, or expired material must be caught here,
		// before any file is written or cluster touched.
		if _, err := tlsutil.LoadPair(c.TLS.CertFile, c.TLS.KeyFile); err != nil {
			return fmt.Errorf("byo tls: %w", err)
		}
		if c.Domain == "" {
			return errors.New("tls requires a domain")
		}
	case TLSModeLetsEncrypt:
		if err := ValidateEmail(c.TLS.Email); err != nil {
			return err
		}
		if c.TLS.Environment != ACMEStaging && c.TLS.Environment != ACMEProduction {
			return errACMEEnv
		}
		if c.Domain == "" {
			return errors.New("tls requires a domain")
		}
	default:
		return errTLSMode
	}
	if c.Domain != "" {
		if err := ValidateDomain(c.Domain); err != nil {
			return err
		}
	}

	if c.BasicAuth.Enabled {
		if err := ValidateUsername(c.BasicAuth.Username); err != nil {
			return err
		}
	}

	return nil
}
