package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://finance.eastmoney.com/a/202401011234.html", PlatformEastmoney},
		{"https://data.eastmoney.com/report/info.html", PlatformEastmoney},
		{"https://finance.sina.com.cn/stock/t/2024-01-01/doc.shtml", PlatformSina},
		{"https://news.10jqka.com.cn/20240101/c123.shtml", PlatformTHS},
		{"http://yanbao.stock.hexun.com/report.html", PlatformHexun},
		{"https://www.pbc.gov.cn/goutongjiaoliu/index.html", PlatformGov},
		{"https://www.sse.com.cn/disclosure/", PlatformGov},
		{"https://www.szse.cn/disclosure/", PlatformGov},
		{"https://example.com/news", PlatformUnknown},
		{"://bad-url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestDetectPlatform_LookalikeHost(t *testing.T) {
	assert.Equal(t, PlatformUnknown, DetectPlatform("https://eastmoney.com.evil.example/a"))
}

func TestPlatformContentSelectors_Eastmoney(t *testing.T) {
	selectors := PlatformContentSelectors(PlatformEastmoney)
	assert.Equal(t, "#ContentBody", selectors[0])
}

func TestPlatformContentSelectors_Unknown(t *testing.T) {
	assert.Equal(t, NewsArticleSelectors(), PlatformContentSelectors(PlatformUnknown))
}

func TestPlatformNoiseSelectors(t *testing.T) {
	common := PlatformNoiseSelectors(PlatformUnknown)
	assert.Contains(t, common, ".comments")

	sina := PlatformNoiseSelectors(PlatformSina)
	assert.Contains(t, sina, ".comments")
	assert.Contains(t, sina, "#left_hqy")
	assert.Greater(t, len(sina), len(common))
}
