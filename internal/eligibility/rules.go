package eligibility

import "strings"

// proxyTypeCodes are the provider proxy_type values treated as anonymizer
// traffic. SES (search engine spider) is included: crawlers never complete
// a trial legitimately.
var proxyTypeCodes = map[string]struct{}{
	"VPN": {},
	"TOR": {},
	"PUB": {},
	"WEB": {},
	"RES": {},
	"DCH": {},
	"CPN": {},
	"EPN": {},
	"SES": {},
}

// VPNIndicator names the first signal that classified a lookup as
// anonymizer traffic. Empty when the lookup is clean.
type VPNIndicator string

const (
	IndicatorProxyFlag                VPNIndicator = "is_proxy"
	IndicatorProxyType                VPNIndicator = "proxy_type"
	IndicatorVPN                      VPNIndicator = "proxy.is_vpn"
	IndicatorTor                      VPNIndicator = "proxy.is_tor"
	IndicatorPublicProxy              VPNIndicator = "proxy.is_public_proxy"
	IndicatorWebProxy                 VPNIndicator = "proxy.is_web_proxy"
	IndicatorResidentialProxy         VPNIndicator = "proxy.is_residential_proxy"
	IndicatorDataCenter               VPNIndicator = "proxy.is_data_center"
	IndicatorConsumerPrivacyNetwork   VPNIndicator = "proxy.is_consumer_privacy_network"
	IndicatorEnterprisePrivateNetwork VPNIndicator = "proxy.is_enterprise_private_network"
	IndicatorWebCrawler               VPNIndicator = "proxy.is_web_crawler"
	IndicatorNestedProxyType          VPNIndicator = "proxy.proxy_type"
)

// ClassifyVPN reports whether the lookup result indicates anonymizer
// traffic, strict OR over every signal the provider exposes. A nil result
// is clean.
func ClassifyVPN(result *LookupResult) (bool, VPNIndicator) {
	if result == nil {
		return false, ""
	}
	if result.IsProxy {
		return true, IndicatorProxyFlag
	}
	if _, ok := proxyTypeCodes[strings.ToUpper(result.ProxyType)]; ok {
		return true, IndicatorProxyType
	}
	if p := result.Proxy; p != nil {
		switch {
		case p.IsVPN:
			return true, IndicatorVPN
		case p.IsTor:
			return true, IndicatorTor
		case p.IsPublicProxy:
			return true, IndicatorPublicProxy
		case p.IsWebProxy:
			return true, IndicatorWebProxy
		case p.IsResidentialProxy:
			return true, IndicatorResidentialProxy
		case p.IsDataCenter:
			return true, IndicatorDataCenter
		case p.IsConsumerPrivacyNetwork:
			return true, IndicatorConsumerPrivacyNetwork
		case p.IsEnterprisePrivateNetwork:
			return true, IndicatorEnterprisePrivateNetwork
		case p.IsWebCrawler:
			return true, IndicatorWebCrawler
		}
		if _, ok := proxyTypeCodes[strings.ToUpper(p.ProxyType)]; ok {
			return true, IndicatorNestedProxyType
		}
	}
	return false, ""
}

// MatchesCountry reports whether the lookup resolved to the given ISO
// 3166-1 alpha-2 country code, case-insensitively. A nil result or empty
// code never matches.
func MatchesCountry(result *LookupResult, code string) bool {
	if result == nil || code == "" {
		return false
	}
	return strings.EqualFold(result.CountryCode, code)
}

// IsDatacenterUsage reports whether the provider classified the address
// as hosting or datacenter space by usage type. Informational only; it
// does not feed the anonymizer decision because usage_type is absent from
// most provider plans and would inflate false positives on cloud NATs.
func IsDatacenterUsage(result *LookupResult) bool {
	if result == nil {
		return false
	}
	return strings.Contains(strings.ToUpper(result.UsageType), "DCH")
}
