package domain

import (
	"fmt"
	"strings"
)

// ValidateStore checks entry against the directory rules. existing is the
// current directory; the entry at index skip (if any) is ignored by the
// duplicate check so an edited entry may keep its own URL. Pass -1 to skip
// nothing.
func ValidateStore(entry StoreConfig, existing []StoreConfig, skip int) error {
	if _, ok := ParseAbsoluteURL(entry.BaseURL); !ok {
		return &ValidationError{
			Rule:    RuleInvalidURL,
			Field:   "baseUrl",
			Message: fmt.Sprintf("%q is not a valid absolute URL", entry.BaseURL),
		}
	}

	if strings.TrimSpace(string(entry.Platform)) == "" {
		return &ValidationError{
			Rule:    RuleMissingPlatform,
			Field:   "platform",
			Message: "platform is required",
		}
	}
	if !entry.Platform.IsSupported() {
		return &ValidationError{
			Rule:    RuleUnsupportedPlatform,
			Field:   "platform",
			Message: fmt.Sprintf("platform %q is not supported", entry.Platform),
		}
	}

	for i, store := range existing {
		if i == skip {
			continue
		}
		if store.BaseURL == entry.BaseURL {
			return &ValidationError{
				Rule:    RuleDuplicateURL,
				Field:   "baseUrl",
				Message: fmt.Sprintf("a store with URL %q already exists", entry.BaseURL),
			}
		}
	}

	return nil
}
