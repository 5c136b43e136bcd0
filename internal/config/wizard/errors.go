package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errProfileRequired  = errors.New("a profile is required")
	errRegionRequired   = errors.New("a region is required")
	errCertFileRequired = errors.New("path to the certificate PEM file is required")
	errKeyFileRequired  = errors.New("path to the private key PEM file is required")
	errFileNotFound     = errors.New("file does not exist")
	errDomainRequired   = errors.New("a domain is required when TLS is enabled")
)
