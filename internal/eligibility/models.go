package eligibility

// ProxyDetail carries the per-category anonymizer flags returned by the
// geolocation provider for a single address.
type ProxyDetail struct {
	IsVPN                      bool   `json:"is_vpn"`
	IsTor                      bool   `json:"is_tor"`
	IsPublicProxy              bool   `json:"is_public_proxy"`
	IsWebProxy                 bool   `json:"is_web_proxy"`
	IsResidentialProxy         bool   `json:"is_residential_proxy"`
	IsDataCenter               bool   `json:"is_data_center"`
	IsConsumerPrivacyNetwork   bool   `json:"is_consumer_privacy_network"`
	IsEnterprisePrivateNetwork bool   `json:"is_enterprise_private_network"`
	IsWebCrawler               bool   `json:"is_web_crawler"`
	ProxyType                  string `json:"proxy_type"`
}

// LookupResult is the provider's view of a client IP: where it is and
// whether it looks like an anonymizer.
type LookupResult struct {
	IP          string       `json:"ip"`
	CountryCode string       `json:"country_code"`
	CountryName string       `json:"country_name"`
	IsProxy     bool         `json:"is_proxy"`
	ProxyType   string       `json:"proxy_type"`
	UsageType   string       `json:"usage_type"`
	ASN         string       `json:"asn,omitempty"`
	AS          string       `json:"as,omitempty"`
	Proxy       *ProxyDetail `json:"proxy,omitempty"`
}
