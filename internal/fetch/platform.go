// Package fetch - platform.go provides platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known finance news or disclosure site.
type Platform string

const (
	// PlatformEastmoney is East Money (东方财富)
	PlatformEastmoney Platform = "eastmoney"
	// PlatformSina is Sina Finance (新浪财经)
	PlatformSina Platform = "sina"
	// PlatformTHS is Tonghuashun (同花顺)
	PlatformTHS Platform = "10jqka"
	// PlatformHexun is Hexun (和讯)
	PlatformHexun Platform = "hexun"
	// PlatformGov is a government or regulator site
	PlatformGov Platform = "gov"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the site family from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.HasSuffix(host, "eastmoney.com"):
		return PlatformEastmoney
	case strings.HasSuffix(host, "sina.com.cn") || strings.HasSuffix(host, "sina.cn"):
		return PlatformSina
	case strings.HasSuffix(host, "10jqka.com.cn"):
		return PlatformTHS
	case strings.HasSuffix(host, "hexun.com"):
		return PlatformHexun
	case strings.HasSuffix(host, ".gov.cn") || host == "gov.cn" ||
		strings.HasSuffix(host, "sse.com.cn") || strings.HasSuffix(host, "szse.cn"):
		return PlatformGov
	}

	return PlatformUnknown
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformEastmoney:
		return []string{
			"#ContentBody",
			".newsContent",
			".txtinfos",
			".article-body",
		}
	case PlatformSina:
		return []string{
			"#artibody",
			".article",
			"#article",
		}
	case PlatformTHS:
		return []string{
			".main-text",
			".article-content",
			"#contentApp",
		}
	case PlatformHexun:
		return []string{
			".art_contextBox",
			".art_context",
			"#artibody",
		}
	case PlatformGov:
		return []string{
			"#UCAP-CONTENT",
			".TRS_Editor",
			".pages_content",
			"#zoom",
			".article-content",
		}
	default:
		return NewsArticleSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Comments and share widgets
		".comment",
		".comments",
		".share",
		".social-share",

		// Related and recommended lists
		".related",
		".recommend",
		".hot-news",

		// Forms and login prompts
		"form",
		".login",
	}

	switch platform {
	case PlatformEastmoney:
		return append(common,
			".em_app",
			".bottomRec",
			".zwothers",
		)
	case PlatformSina:
		return append(common,
			".article-notice",
			".appendQr_wrap",
			"#left_hqy",
		)
	case PlatformTHS:
		return append(common,
			".editor",
			".relate-info",
		)
	case PlatformGov:
		return append(common,
			".share-box",
			".print",
		)
	default:
		return common
	}
}
