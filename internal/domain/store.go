package domain

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Platform identifies the kind of backend a store runs on
type Platform string

const (
	PlatformShopify   Platform = "shopify"
	PlatformOpenfront Platform = "openfront"
)

// PlaceholderStoreName is used when a display name cannot be derived from the base URL
const PlaceholderStoreName = "Store"

// SupportedPlatforms lists the platform keys a directory entry may use.
// Adding a platform here makes it valid for new entries; a fetcher must be
// registered for it before its carts show up in the reconciled view.
var SupportedPlatforms = []Platform{PlatformShopify, PlatformOpenfront}

// IsSupported reports whether p is one of SupportedPlatforms
func (p Platform) IsSupported() bool {
	for _, supported := range SupportedPlatforms {
		if p == supported {
			return true
		}
	}
	return false
}

// StoreConfig represents one entry of the store directory
type StoreConfig struct {
	StoreID     string   `json:"storeId" bson:"storeId" toml:"store_id"`
	BaseURL     string   `json:"baseUrl" bson:"baseUrl" toml:"base_url"`
	Platform    Platform `json:"platform" bson:"platform" toml:"platform"`
	DisplayName string   `json:"displayName,omitempty" bson:"displayName,omitempty" toml:"display_name,omitempty"`
	LogoIcon    string   `json:"logoIcon,omitempty" bson:"logoIcon,omitempty" toml:"logo_icon,omitempty"`
	LogoColor   string   `json:"logoColor,omitempty" bson:"logoColor,omitempty" toml:"logo_color,omitempty"`
}

// Name returns the explicit display name, or one derived from the base URL
func (s StoreConfig) Name() string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	return DeriveDisplayName(s.BaseURL)
}

// DeriveDisplayName builds a display name from a URL's hostname: the leading
// "www." is dropped, the first DNS label is kept and its first character is
// upper-cased. Unparseable URLs yield PlaceholderStoreName.
func DeriveDisplayName(baseURL string) string {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Hostname() == "" {
		return PlaceholderStoreName
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return PlaceholderStoreName
	}

	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:]
}

// ParseAbsoluteURL parses raw and requires both a scheme and a host
func ParseAbsoluteURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	return u, true
}

// CloneStores returns a copy of stores that shares no backing array
func CloneStores(stores []StoreConfig) []StoreConfig {
	if len(stores) == 0 {
		return []StoreConfig{}
	}
	dup := make([]StoreConfig, len(stores))
	copy(dup, stores)
	return dup
}
