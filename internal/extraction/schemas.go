package extraction

import (
	"github.com/jonathan/stock-research-agent/internal/classify"
	"github.com/jonathan/stock-research-agent/internal/llm"
	"github.com/jonathan/stock-research-agent/internal/prompts"
)

const promptFile = "extraction.json"

// GenericSchema covers ordinary financial news and commentary pages.
func GenericSchema() llm.ExtractionSchema {
	return llm.ExtractionSchema{
		Name:        "GenericDocument",
		Description: prompts.MustGet(promptFile, "generic-system"),
		Fields: []llm.SchemaField{
			{Name: "摘要", Type: "string", Description: "用两三句话概括全文", Required: true},
			{Name: "关键事件", Type: "[]string", Description: "文中报道的主要事件"},
			{Name: "涉及公司", Type: "[]string", Description: "提及的上市公司名称及代码"},
			{Name: "相关行业", Type: "[]string", Description: "涉及的行业或板块"},
			{Name: "关键数据", Type: "[]string", Description: "价格、涨跌幅、成交额、财务指标等具体数字"},
			{Name: "市场影响", Type: "string", Description: "对相关股票或板块的可能影响"},
			{Name: "情绪倾向", Type: "string", Description: "利好、利空或中性"},
		},
	}
}

// BrokerSchema covers broker research reports.
func BrokerSchema() llm.ExtractionSchema {
	return llm.ExtractionSchema{
		Name:        "BrokerReport",
		Description: prompts.MustGet(promptFile, "broker-system"),
		Fields: []llm.SchemaField{
			{Name: "研究机构", Type: "string", Description: "发布研报的券商或研究所"},
			{Name: "分析师", Type: "[]string"},
			{Name: "研究对象", Type: "string", Description: "覆盖的公司或行业", Required: true},
			{Name: "投资评级", Type: "string", Description: "买入、增持、中性、减持或卖出", Required: true},
			{Name: "目标价", Type: "string"},
			{Name: "盈利预测", Type: "[]string", Description: "各年度营收、净利润、EPS 预测"},
			{Name: "核心观点", Type: "[]string", Required: true},
			{Name: "风险提示", Type: "[]string"},
		},
	}
}

// PolicySchema covers documents issued by government bodies and regulators.
func PolicySchema() llm.ExtractionSchema {
	return llm.ExtractionSchema{
		Name:        "PolicyDocument",
		Description: prompts.MustGet(promptFile, "policy-system"),
		Fields: []llm.SchemaField{
			{Name: "发布机构", Type: "string", Required: true},
			{Name: "发布日期", Type: "string"},
			{Name: "政策名称", Type: "string"},
			{Name: "核心内容", Type: "[]string", Required: true},
			{Name: "受影响行业", Type: "[]string"},
			{Name: "利好方向", Type: "[]string", Description: "可能受益的行业、板块或公司类型"},
			{Name: "利空方向", Type: "[]string"},
			{Name: "市场影响评估", Type: "string", Description: "对资本市场的短期与中长期影响"},
		},
	}
}

// SchemaFor picks the extraction schema for a classification label.
func SchemaFor(label classify.Label) llm.ExtractionSchema {
	switch label {
	case classify.BrokerReport:
		return BrokerSchema()
	case classify.PolicyDocument:
		return PolicySchema()
	default:
		return GenericSchema()
	}
}
