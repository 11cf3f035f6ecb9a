// internal/workers/resolve-product/config.go
package resolveproduct

import "time"

type Config struct {
	// CanonicalPattern recognizes product identifiers embedded in a URL path
	// without calling the oracle. The first capture group is the product id.
	CanonicalPattern string
	// ProductURLTemplate synthesizes a canonical URL for runs submitted with
	// a bare product id. %s is the product id.
	ProductURLTemplate string
	Timeout            time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CanonicalPattern:   DefaultCanonicalPattern,
		ProductURLTemplate: "https://www.bestbuy.com/site/product/%s.p",
		Timeout:            60 * time.Second,
	}
}
