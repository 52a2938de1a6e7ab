// Package classify labels a document as a generic page, a broker research report
// or a policy document using fixed domain and keyword lists.
package classify

import (
	"strings"
	"unicode/utf8"
)

// Label is a document classification.
type Label string

// Labels in precedence order: broker reports are checked before policy documents.
const (
	Generic        Label = "GENERIC"
	BrokerReport   Label = "BROKER_REPORT"
	PolicyDocument Label = "POLICY_DOCUMENT"
)

// ContentWindow is how many leading characters of content the content signals inspect.
const ContentWindow = 2000

// Signal names which check matched.
type Signal string

// Signals in evaluation order
const (
	SignalNone    Signal = ""
	SignalDomain  Signal = "domain"
	SignalTitle   Signal = "title"
	SignalContent Signal = "content"
)

// Rule is the set of signals for one label.
type Rule struct {
	Label           Label
	Domains         []string
	TitleKeywords   []string
	ContentKeywords []string
}

var brokerRule = Rule{
	Label: BrokerReport,
	Domains: []string{
		"research.cmbi.com", "research.csc.com.cn", "research.china-invs.cn",
		"www.gtja.com/stock/research", "www.cicc.com/research",
		"research.guosen.com.cn", "yanbao.stock.hexun.com", "research.ebscn.com",
		"www.swsresearch.com", "research.foundersc.com",
	},
	TitleKeywords: []string{
		"研究报告", "研报", "券商", "证券", "投资评级", "目标价", "研究所",
		"首次覆盖", "投资分析", "行业研究", "公司研究",
	},
	ContentKeywords: []string{
		"投资评级", "目标价格", "买入", "增持", "中性", "减持", "卖出",
		"研究报告", "行业研究", "公司研究", "盈利预测", "风险提示",
		"分析师", "证券研究所", "证券分析师",
	},
}

var policyRule = Rule{
	Label: PolicyDocument,
	Domains: []string{
		"www.pbc.gov.cn", "www.csrc.gov.cn", "www.mof.gov.cn", "www.gov.cn",
		"www.ndrc.gov.cn", "www.miit.gov.cn", "www.safe.gov.cn", "www.sse.com.cn",
		"www.szse.cn", "www.stats.gov.cn", "www.circ.gov.cn", "www.cbirc.gov.cn",
	},
	TitleKeywords: []string{
		"政策", "通知", "规定", "条例", "办法", "规则", "指引", "指导意见",
		"央行", "证监会", "财政部", "国务院", "发改委", "部署", "措施",
		"实施", "公布", "发布", "印发", "经济政策", "货币政策", "监管政策",
	},
	ContentKeywords: []string{
		"各省、自治区、直辖市", "经研究决定", "现将", "有关事项通知如下",
		"特此通知", "现就", "现印发", "实施意见", "政策措施", "各有关部门",
	},
}

// Rules returns the rules in precedence order.
func Rules() []Rule {
	return []Rule{brokerRule, policyRule}
}

// Classify returns the first label whose rule matches. It is pure and deterministic.
func Classify(url, title, content string) Label {
	label, _ := Explain(url, title, content)
	return label
}

// Explain is Classify plus the signal that decided the label.
func Explain(url, title, content string) (Label, Signal) {
	target := domainTarget(url)
	head := leadingChars(content, ContentWindow)

	for _, rule := range Rules() {
		if sig := rule.match(target, title, head); sig != SignalNone {
			return rule.Label, sig
		}
	}
	return Generic, SignalNone
}

// match checks domain, then title, then content.
func (r Rule) match(target, title, head string) Signal {
	if containsAny(target, r.Domains) {
		return SignalDomain
	}
	if containsAny(title, r.TitleKeywords) {
		return SignalTitle
	}
	if containsAny(head, r.ContentKeywords) {
		return SignalContent
	}
	return SignalNone
}

// domainTarget lower-cases url and strips its scheme. Some domain entries carry
// a path, so the match runs against host and path together.
func domainTarget(url string) string {
	target := strings.ToLower(strings.TrimSpace(url))
	if i := strings.Index(target, "://"); i >= 0 {
		target = target[i+3:]
	}
	return target
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// leadingChars returns the first n characters of s.
func leadingChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// String implements fmt.Stringer.
func (l Label) String() string { return string(l) }

// DisplayName returns the Chinese name of the label.
func (l Label) DisplayName() string {
	switch l {
	case BrokerReport:
		return "券商研报"
	case PolicyDocument:
		return "政策文件"
	default:
		return "一般资讯"
	}
}
