package tlsconfig

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

var ErrDomainNotFound = errors.New("domain not found in acme store")

type acmeEntry struct {
	Certificate string `json:"certificate"`
	Key         string `json:"key"`
}

// FromTraefik loads the key pair for domain from a traefik acme.json file.
func FromTraefik(file, domain string) (tls.Certificate, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return tls.Certificate{}, err
	}
	entry, err := lookupAcme(string(data), domain)
	if err != nil {
		return tls.Certificate{}, err
	}
	certPEM, err := base64.StdEncoding.DecodeString(entry.Certificate)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certificate of %s: %w", domain, err)
	}
	keyPEM, err := base64.StdEncoding.DecodeString(entry.Key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("key of %s: %w", domain, err)
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}

// lookupAcme searches all resolvers of the store for the main domain.
func lookupAcme(jsonData, domain string) (acmeEntry, error) {
	obj, err := oj.ParseString(jsonData)
	if err != nil {
		return acmeEntry{}, err
	}
	path, err := jp.ParseString(fmt.Sprintf(`$..Certificates[?(@.domain.main == %q)]`, domain))
	if err != nil {
		return acmeEntry{}, err
	}
	res := path.Get(obj)
	if len(res) == 0 {
		return acmeEntry{}, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	}
	var ret acmeEntry
	if err := oj.Unmarshal([]byte(oj.JSON(res[0])), &ret); err != nil {
		return acmeEntry{}, err
	}
	return ret, nil
}
