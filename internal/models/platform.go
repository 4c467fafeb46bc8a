package models

import (
	"fmt"
	"strings"
)

// Platform identifies a data source handled by the analytics pipeline.
// Dispatch on Platform is always an exhaustive switch; an unknown value is a
// programming error and panics rather than silently falling through.
type Platform int

const (
	PlatformTikTok Platform = iota + 1
	PlatformFacebook
	PlatformSales
)

// ParsePlatform converts a request string into a Platform.
//
// Parameters:
//
//	s: Platform name (case-insensitive).
//
// Returns:
//
//	Platform: The parsed platform.
//	error: Error when the name is not recognized.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tiktok":
		return PlatformTikTok, nil
	case "facebook":
		return PlatformFacebook, nil
	case "sales":
		return PlatformSales, nil
	default:
		return 0, fmt.Errorf("unknown platform %q", s)
	}
}

// String returns the lowercase platform name.
func (p Platform) String() string {
	switch p {
	case PlatformTikTok:
		return "tiktok"
	case PlatformFacebook:
		return "facebook"
	case PlatformSales:
		return "sales"
	default:
		panic(fmt.Sprintf("invalid platform %d", int(p)))
	}
}

// Table returns the store table that holds this platform's records.
func (p Platform) Table() string {
	switch p {
	case PlatformTikTok:
		return "tiktokdata"
	case PlatformFacebook:
		return "facebookdata"
	case PlatformSales:
		return "sales"
	default:
		panic(fmt.Sprintf("invalid platform %d", int(p)))
	}
}

// RequiredColumns returns the spreadsheet columns an upload for this platform
// must provide.
func (p Platform) RequiredColumns() []string {
	switch p {
	case PlatformTikTok:
		return []string{"date", "views", "likes", "comments", "shares"}
	case PlatformFacebook:
		return []string{"date", "likes", "comments", "shares", "reach"}
	case PlatformSales:
		return []string{"date", "product_id", "product_name", "quantity_sold", "price"}
	default:
		panic(fmt.Sprintf("invalid platform %d", int(p)))
	}
}

// PlatformFilter selects which social platforms contribute to an aggregate.
type PlatformFilter int

const (
	FilterAll PlatformFilter = iota
	FilterTikTok
	FilterFacebook
)

// ParsePlatformFilter converts a query parameter into a PlatformFilter.
// An empty value means "all".
func ParsePlatformFilter(s string) (PlatformFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "tiktok":
		return FilterTikTok, nil
	case "facebook":
		return FilterFacebook, nil
	default:
		return 0, fmt.Errorf("unknown platform filter %q", s)
	}
}

// Platforms returns the social platforms selected by the filter.
func (f PlatformFilter) Platforms() []Platform {
	switch f {
	case FilterAll:
		return []Platform{PlatformTikTok, PlatformFacebook}
	case FilterTikTok:
		return []Platform{PlatformTikTok}
	case FilterFacebook:
		return []Platform{PlatformFacebook}
	default:
		panic(fmt.Sprintf("invalid platform filter %d", int(f)))
	}
}

// String returns the filter's query-parameter form.
func (f PlatformFilter) String() string {
	switch f {
	case FilterAll:
		return "all"
	case FilterTikTok:
		return "tiktok"
	case FilterFacebook:
		return "facebook"
	default:
		panic(fmt.Sprintf("invalid platform filter %d", int(f)))
	}
}
