package saml

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/cardinalsites/samlauth/pkg/attributes"
)

// DefaultNameAttribute is the assertion attribute carrying the login name.
const DefaultNameAttribute = "uid"

// Config holds the SAML service provider configuration.
type Config struct {
	// Identity provider settings.
	IdPSSOURL      string `yaml:"idp_sso_url"`
	IdPIssuer      string `yaml:"idp_issuer"`
	IdPCertificate string `yaml:"idp_certificate"` // PEM encoded

	// Service provider settings.
	SPIssuer     string `yaml:"sp_issuer"`
	ACSURL       string `yaml:"acs_url"`
	AudienceURI  string `yaml:"audience_uri"`
	NameIDFormat string `yaml:"name_id_format"`
	SignRequests bool   `yaml:"sign_requests"`

	// Optional SP signing pair, PEM encoded. Required when SignRequests is
	// set.
	SPCertificate string `yaml:"sp_certificate"`
	SPPrivateKey  string `yaml:"sp_private_key"`

	// NameAttribute is the assertion attribute holding the sunetid.
	// Defaults to "uid"; the NameID is used when the attribute is absent.
	NameAttribute string `yaml:"name_attribute"`
}

// Assertion is the validated outcome of one SSO login.
type Assertion struct {
	// Name is the external login name (sunetid).
	Name string
	// SessionIndex identifies the IdP session, used for logout.
	SessionIndex string
	// Attributes holds every attribute the IdP released.
	Attributes attributes.Bag
}

// Provider validates SAML responses against the configured identity
// provider.
type Provider struct {
	config Config
	sp     *saml2.SAMLServiceProvider
}

// NewProvider creates a SAML assertion consumer from the configuration.
func NewProvider(config Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cert, err := parseCertificate(config.IdPCertificate)
	if err != nil {
		return nil, fmt.Errorf("idp certificate: %w", err)
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      config.IdPSSOURL,
		IdentityProviderIssuer:      config.IdPIssuer,
		ServiceProviderIssuer:       config.SPIssuer,
		AssertionConsumerServiceURL: config.ACSURL,
		AudienceURI:                 config.AudienceURI,
		SignAuthnRequests:           config.SignRequests,
		IDPCertificateStore: &dsig.MemoryX509CertificateStore{
			Roots: []*x509.Certificate{cert},
		},
	}
	if config.NameIDFormat != "" {
		sp.NameIdFormat = config.NameIDFormat
	}

	if config.SPPrivateKey != "" {
		key, err := parsePrivateKey(config.SPPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("sp private key: %w", err)
		}
		sp.SPKeyStore = &dsig.TLSCertKeyStore{
			PrivateKey:  key,
			Certificate: [][]byte{[]byte(config.SPCertificate)},
		}
	}

	return &Provider{config: config, sp: sp}, nil
}

// Consume validates a base64-encoded SAMLResponse and extracts the login
// name and attribute bag.
func (p *Provider) Consume(encodedResponse string) (*Assertion, error) {
	info, err := p.sp.RetrieveAssertionInfo(encodedResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to validate assertion: %w", err)
	}

	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, fmt.Errorf("assertion has invalid time")
		}
		if info.WarningInfo.NotInAudience {
			return nil, fmt.Errorf("assertion not in expected audience")
		}
	}

	bag := bagFromValues(info.Values)

	nameAttribute := p.config.NameAttribute
	if nameAttribute == "" {
		nameAttribute = DefaultNameAttribute
	}
	name := bag.First(nameAttribute)
	if name == "" {
		name = info.NameID
	}
	if name == "" {
		return nil, fmt.Errorf("assertion carries no login name")
	}

	return &Assertion{
		Name:         name,
		SessionIndex: info.SessionIndex,
		Attributes:   bag,
	}, nil
}

// AuthURL builds the redirect URL that starts a login at the identity
// provider. The relay state is echoed back on the ACS callback.
func (p *Provider) AuthURL(relayState string) (string, error) {
	url, err := p.sp.BuildAuthURL(relayState)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	return url, nil
}

// Validate checks the configuration for the required fields.
func (c Config) Validate() error {
	if c.IdPSSOURL == "" {
		return fmt.Errorf("idp_sso_url is required")
	}
	if c.IdPIssuer == "" {
		return fmt.Errorf("idp_issuer is required")
	}
	if c.IdPCertificate == "" {
		return fmt.Errorf("idp_certificate is required")
	}
	if _, err := parseCertificate(c.IdPCertificate); err != nil {
		return fmt.Errorf("idp_certificate: %w", err)
	}
	if c.SignRequests && c.SPPrivateKey == "" {
		return fmt.Errorf("sp_private_key is required when sign_requests is set")
	}
	return nil
}

// bagFromValues converts assertion attributes into a Bag, preserving every
// value of multi-valued attributes.
func bagFromValues(values saml2.Values) attributes.Bag {
	bag := make(attributes.Bag, len(values))
	for _, attr := range values {
		list := make([]string, 0, len(attr.Values))
		for _, v := range attr.Values {
			list = append(list, v.Value)
		}
		bag[attr.Name] = list
	}
	return bag
}

func parseCertificate(pemData string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return key, nil
	}

	// Try PKCS8 format.
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
