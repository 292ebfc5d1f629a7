// Package device turns raw User-Agent headers into short display strings
// recorded with signatures.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent summarises a User-Agent as "<browser> on <os>".
func ParseUserAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownDevice
	}
	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if platform := ua.Platform(); ua.Mobile() && platform != "" && !strings.Contains(os, platform) {
		os = strings.TrimSpace(platform + " " + os)
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
