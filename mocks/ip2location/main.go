// Mock IP2Location.io API for local development. Deterministic: the
// last octet of the queried IP selects the scenario, so no state or
// flags are needed to exercise every gate outcome.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8082"
	defaultLatencyMs = "50"
)

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

type LookupResponse struct {
	IP          string      `json:"ip"`
	CountryCode string      `json:"country_code"`
	CountryName string      `json:"country_name"`
	IsProxy     bool        `json:"is_proxy"`
	ProxyType   string      `json:"proxy_type"`
	UsageType   string      `json:"usage_type"`
	Proxy       ProxyDetail `json:"proxy"`
}

type ErrorEnvelope struct {
	Error struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

var latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/", handleLookup)

	log.Printf("Mock IP2Location API starting on port %s", port)
	log.Printf("Scenarios by last octet: .66 VPN, .67 Tor, .68 datacenter, .77 blocked country (PK), .99 provider error, anything else clean (CA)")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "ip2location-mock",
	})
}

func handleLookup(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	ip := r.URL.Query().Get("ip")
	if ip == "" {
		writeError(w, http.StatusBadRequest, 10000, "Missing ip parameter.")
		return
	}

	resp := LookupResponse{
		IP:          ip,
		CountryCode: "CA",
		CountryName: "Canada",
		UsageType:   "ISP",
	}

	switch lastOctet(ip) {
	case "66":
		resp.IsProxy = true
		resp.ProxyType = "VPN"
		resp.Proxy = ProxyDetail{IsVPN: true, ProxyType: "VPN"}
	case "67":
		resp.IsProxy = true
		resp.ProxyType = "TOR"
		resp.Proxy = ProxyDetail{IsTor: true, ProxyType: "TOR"}
	case "68":
		resp.Proxy = ProxyDetail{IsDataCenter: true}
		resp.UsageType = "DCH"
	case "77":
		resp.CountryCode = "PK"
		resp.CountryName = "Pakistan"
	case "99":
		writeError(w, http.StatusInternalServerError, 10999, "Simulated provider outage.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	var envelope ErrorEnvelope
	envelope.Error.Code = code
	envelope.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope)
}

func lastOctet(ip string) string {
	parts := strings.Split(ip, ".")
	return parts[len(parts)-1]
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
