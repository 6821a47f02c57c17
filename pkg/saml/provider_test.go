package saml

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	saml2 "github.com/russellhaering/gosaml2"
	"github.com/russellhaering/gosaml2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalsites/samlauth/pkg/attributes"
)

// testCertificate generates a self-signed certificate and its key in PEM.
func testCertificate(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "idp.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	return certPEM, keyPEM
}

func validConfig(t *testing.T) Config {
	cert, _ := testCertificate(t)
	return Config{
		IdPSSOURL:      "https://idp.test/sso",
		IdPIssuer:      "https://idp.test",
		IdPCertificate: cert,
		SPIssuer:       "https://sp.test/metadata",
		ACSURL:         "https://sp.test/auth/saml/acs",
		AudienceURI:    "https://sp.test",
	}
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(validConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewProviderWithSigningKey(t *testing.T) {
	cert, key := testCertificate(t)
	config := validConfig(t)
	config.SignRequests = true
	config.SPCertificate = cert
	config.SPPrivateKey = key

	provider, err := NewProvider(config)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestAuthURL(t *testing.T) {
	provider, err := NewProvider(validConfig(t))
	require.NoError(t, err)

	url, err := provider.AuthURL("/admin")
	require.NoError(t, err)
	assert.Contains(t, url, "https://idp.test/sso")
	assert.Contains(t, url, "SAMLRequest=")
	assert.Contains(t, url, "RelayState=")
}

func TestConfigValidate(t *testing.T) {
	config := validConfig(t)
	require.NoError(t, config.Validate())

	missing := config
	missing.IdPSSOURL = ""
	assert.Error(t, missing.Validate())

	missing = config
	missing.IdPIssuer = ""
	assert.Error(t, missing.Validate())

	missing = config
	missing.IdPCertificate = ""
	assert.Error(t, missing.Validate())

	bad := config
	bad.IdPCertificate = "not a certificate"
	assert.Error(t, bad.Validate())

	unsigned := config
	unsigned.SignRequests = true
	assert.Error(t, unsigned.Validate())
}

func TestBagFromValues(t *testing.T) {
	values := saml2.Values{
		"uid": types.Attribute{
			Name:   "uid",
			Values: []types.AttributeValue{{Value: "jdoe"}},
		},
		"eduPersonAffiliation": types.Attribute{
			Name: "eduPersonAffiliation",
			Values: []types.AttributeValue{
				{Value: "staff"},
				{Value: "member"},
			},
		},
	}

	bag := bagFromValues(values)
	assert.Equal(t, "jdoe", bag.First("uid"))
	assert.Equal(t, []string{"staff", "member"}, bag.Values(attributes.Affiliation))
}

func TestParsePrivateKeyFormats(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs1 := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	parsed, err := parsePrivateKey(pkcs1)
	require.NoError(t, err)
	assert.NotNil(t, parsed)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	parsed, err = parsePrivateKey(string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})))
	require.NoError(t, err)
	assert.NotNil(t, parsed)

	_, err = parsePrivateKey("garbage")
	assert.Error(t, err)
}
