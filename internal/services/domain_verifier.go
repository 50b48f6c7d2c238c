// Package services holds domain-level services that sit above the
// repositories but below the HTTP handlers.
package services

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relaydesk/relaydesk-backend/internal/models"
)

// DNSRecord represents a single DNS record in the setup guide
type DNSRecord struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Priority int    `json:"priority,omitempty"`
	TTL      int    `json:"ttl"`
}

// DNSSetupGuide lists the records a tenant must create so that mail for
// their inbound domain reaches the relay and ownership is provable.
type DNSSetupGuide struct {
	MXRecord  DNSRecord `json:"mx_record"`
	TXTRecord DNSRecord `json:"txt_record"`
	RelayHost string    `json:"relay_host"`
}

// DNSVerificationResult contains the results of DNS verification
type DNSVerificationResult struct {
	MXVerified  bool     `json:"mx_verified"`
	TXTVerified bool     `json:"txt_verified"`
	AllVerified bool     `json:"all_verified"`
	Errors      []string `json:"errors,omitempty"`
}

// VerifierConfig holds configuration for the domain verifier service
type VerifierConfig struct {
	RelayHostname string
	MaxRetries    int
	RetryDelay    time.Duration
	LookupTimeout time.Duration
}

// DefaultVerifierConfig returns default configuration for the verifier
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		RelayHostname: "mx.relaydesk.io",
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
		LookupTimeout: 10 * time.Second,
	}
}

// LoadVerifierConfigFromEnv loads verifier configuration from environment variables
func LoadVerifierConfigFromEnv() VerifierConfig {
	cfg := DefaultVerifierConfig()

	if host := os.Getenv("RELAY_MX_HOSTNAME"); host != "" {
		cfg.RelayHostname = host
	}
	if retries := os.Getenv("DNS_VERIFY_MAX_RETRIES"); retries != "" {
		if v, err := strconv.Atoi(retries); err == nil {
			cfg.MaxRetries = v
		}
	}
	if delay := os.Getenv("DNS_VERIFY_RETRY_DELAY"); delay != "" {
		if v, err := time.ParseDuration(delay); err == nil {
			cfg.RetryDelay = v
		}
	}
	if timeout := os.Getenv("DNS_LOOKUP_TIMEOUT"); timeout != "" {
		if v, err := time.ParseDuration(timeout); err == nil {
			cfg.LookupTimeout = v
		}
	}

	return cfg
}

// DomainVerifier checks that a business's inbound domain is wired up:
// its MX record routes mail to the relay, and an ownership TXT record
// proves the tenant controls the zone.
type DomainVerifier interface {
	// VerifyBusiness checks all required DNS records for a business's inbound domain
	VerifyBusiness(ctx context.Context, business *models.Business) (*DNSVerificationResult, error)

	// VerifyMXRecord checks if an MX record points to the expected relay hostname
	VerifyMXRecord(ctx context.Context, domainName, expectedHost string) (bool, error)

	// VerifyTXTRecord checks if the ownership TXT record carries the expected token
	VerifyTXTRecord(ctx context.Context, domainName, token string) (bool, error)

	// SetupGuide returns the DNS records a tenant must create for the business
	SetupGuide(business *models.Business) *DNSSetupGuide
}

// DNSResolver interface for DNS lookups (allows mocking in tests)
type DNSResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// defaultDNSResolver implements DNSResolver using the net package
type defaultDNSResolver struct {
	resolver *net.Resolver
}

func newDefaultDNSResolver(timeout time.Duration) *defaultDNSResolver {
	return &defaultDNSResolver{
		resolver: &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: timeout}
				return d.DialContext(ctx, network, address)
			},
		},
	}
}

func (r *defaultDNSResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return r.resolver.LookupMX(ctx, name)
}

func (r *defaultDNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return r.resolver.LookupTXT(ctx, name)
}

// domainVerifier implements DomainVerifier
type domainVerifier struct {
	config   VerifierConfig
	resolver DNSResolver
}

// NewDomainVerifier creates a new DomainVerifier instance
func NewDomainVerifier(config VerifierConfig) DomainVerifier {
	return &domainVerifier{
		config:   config,
		resolver: newDefaultDNSResolver(config.LookupTimeout),
	}
}

// NewDomainVerifierWithResolver creates a new DomainVerifier with a custom resolver (for testing)
func NewDomainVerifierWithResolver(config VerifierConfig, resolver DNSResolver) DomainVerifier {
	return &domainVerifier{
		config:   config,
		resolver: resolver,
	}
}

// ownershipRecordName returns the TXT record name carrying the ownership token
func ownershipRecordName(domainName string) string {
	return fmt.Sprintf("_relaydesk.%s", domainName)
}

// ownershipRecordValue returns the expected TXT record value for a business
func ownershipRecordValue(business *models.Business) string {
	return fmt.Sprintf("relaydesk-verify=%s", business.PublicID)
}

// VerifyBusiness checks the MX and ownership TXT records for a business's
// inbound domain with retries. Individual failures are collected; the
// call itself only errors on invalid input.
func (s *domainVerifier) VerifyBusiness(ctx context.Context, business *models.Business) (*DNSVerificationResult, error) {
	if business == nil {
		return nil, fmt.Errorf("business cannot be nil")
	}
	if business.InboundDomain == "" {
		return nil, fmt.Errorf("business has no inbound domain")
	}

	result := &DNSVerificationResult{
		Errors: make([]string, 0),
	}

	mxVerified, err := s.verifyWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return s.VerifyMXRecord(ctx, business.InboundDomain, s.config.RelayHostname)
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("MX verification failed: %v", err))
	}
	result.MXVerified = mxVerified

	txtVerified, err := s.verifyWithRetry(ctx, func(ctx context.Context) (bool, error) {
		return s.VerifyTXTRecord(ctx, business.InboundDomain, ownershipRecordValue(business))
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("TXT verification failed: %v", err))
	}
	result.TXTVerified = txtVerified

	result.AllVerified = result.MXVerified && result.TXTVerified

	return result, nil
}

// verifyWithRetry executes a verification function with retries
func (s *domainVerifier) verifyWithRetry(ctx context.Context, verifyFunc func(context.Context) (bool, error)) (bool, error) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		verified, err := verifyFunc(ctx)
		if err == nil && verified {
			return true, nil
		}
		if err != nil {
			lastErr = err
		}

		// Don't sleep on the last attempt
		if attempt < s.config.MaxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(s.config.RetryDelay):
			}
		}
	}

	if lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

// VerifyMXRecord checks if an MX record points to the expected relay hostname
func (s *domainVerifier) VerifyMXRecord(ctx context.Context, domainName, expectedHost string) (bool, error) {
	if domainName == "" {
		return false, fmt.Errorf("domain name cannot be empty")
	}
	if expectedHost == "" {
		return false, fmt.Errorf("expected host cannot be empty")
	}

	// Normalize expected host (remove trailing dot if present)
	expectedHost = strings.TrimSuffix(strings.ToLower(expectedHost), ".")

	mxRecords, err := s.resolver.LookupMX(ctx, domainName)
	if err != nil {
		return false, fmt.Errorf("MX lookup failed for %s: %w", domainName, err)
	}
	if len(mxRecords) == 0 {
		return false, fmt.Errorf("no MX records found for %s", domainName)
	}

	for _, mx := range mxRecords {
		mxHost := strings.TrimSuffix(strings.ToLower(mx.Host), ".")
		if mxHost == expectedHost {
			return true, nil
		}
	}

	return false, fmt.Errorf("MX record mismatch: expected %s, found %s", expectedHost, mxRecords[0].Host)
}

// VerifyTXTRecord checks if the ownership TXT record carries the expected token
func (s *domainVerifier) VerifyTXTRecord(ctx context.Context, domainName, token string) (bool, error) {
	if domainName == "" {
		return false, fmt.Errorf("domain name cannot be empty")
	}
	if token == "" {
		return false, fmt.Errorf("token cannot be empty")
	}

	txtDomain := ownershipRecordName(domainName)

	txtRecords, err := s.resolver.LookupTXT(ctx, txtDomain)
	if err != nil {
		return false, fmt.Errorf("TXT lookup failed for %s: %w", txtDomain, err)
	}
	if len(txtRecords) == 0 {
		return false, fmt.Errorf("no TXT records found for %s", txtDomain)
	}

	for _, txt := range txtRecords {
		if strings.TrimSpace(txt) == token {
			return true, nil
		}
	}

	return false, fmt.Errorf("TXT record mismatch: expected %s at %s", token, txtDomain)
}

// SetupGuide returns the DNS records a tenant must create for the business
func (s *domainVerifier) SetupGuide(business *models.Business) *DNSSetupGuide {
	return &DNSSetupGuide{
		RelayHost: s.config.RelayHostname,
		MXRecord: DNSRecord{
			Type:     "MX",
			Name:     business.InboundDomain,
			Value:    s.config.RelayHostname,
			Priority: 10,
			TTL:      3600,
		},
		TXTRecord: DNSRecord{
			Type:  "TXT",
			Name:  ownershipRecordName(business.InboundDomain),
			Value: ownershipRecordValue(business),
			TTL:   3600,
		},
	}
}

// ExportBIND renders the setup guide as BIND zone file lines
func (g *DNSSetupGuide) ExportBIND() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. %d IN MX %d %s.\n", g.MXRecord.Name, g.MXRecord.TTL, g.MXRecord.Priority, g.MXRecord.Value)
	fmt.Fprintf(&b, "%s. %d IN TXT \"%s\"\n", g.TXTRecord.Name, g.TXTRecord.TTL, g.TXTRecord.Value)
	return b.String()
}
