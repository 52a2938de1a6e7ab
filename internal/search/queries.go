package search

import "github.com/jonathan/stock-research-agent/internal/types"

// DefaultQueries returns the market-wide query list.
func DefaultQueries() []string {
	return []string{
		// 宏观经济与政策
		"中国最新GDP增长预期",
		"央行最新货币政策动向",
		"证监会最新监管政策",
		"国家发改委产业政策最新动态",
		"财政部最新财政政策",
		"中国经济转型最新进展",
		"最新减税降费政策",

		// 市场趋势与行情
		"最近A股市场行情分析",
		"今日股市涨跌板块分析",
		"近期市场资金流向趋势",
		"外资流入流出最新数据",
		"北向资金动向分析",
		"融资融券余额变化趋势",
		"市场情绪指标分析",

		// 热门行业板块
		"半导体行业最新发展趋势",
		"新能源行业投资机会分析",
		"人工智能概念股最新动态",
		"生物医药行业投资分析",
		"消费电子产业链分析",
		"金融科技行业发展前景",
		"数字经济相关板块分析",

		// 个股动态
		"近期业绩大幅增长的股票",
		"连续上涨的强势股分析",
		"高股息率价值股筛选",
		"低估值绩优股分析",
		"主力资金重点关注的股票",
		"机构一致推荐的股票",
		"创新高股票分析",

		// 特定指标分析
		"高ROE股票筛选与分析",
		"高毛利率公司分析",
		"高研发投入企业分析",
		"高现金流企业分析",
		"低市盈率高成长股分析",

		// 研报与分析师观点
		"券商最新策略报告观点",
		"知名分析师最新股市预测",
		"机构最新重仓股变化",
		"私募基金最新持仓动向",
		"公募基金重点布局方向",

		// 风险事件监控
		"股市最新风险提示",
		"近期监管处罚信息",
		"企业财务造假风险预警",
		"上市公司债务风险分析",
		"股票质押风险监控",

		// 国际市场影响
		"美联储最新货币政策对A股影响",
		"国际地缘政治风险对股市影响",
		"全球资本市场联动性分析",
		"外围市场波动对A股影响",
	}
}

// StockQueries returns the queries for a single subject.
func StockQueries(subject types.Subject) []string {
	id := subject.Code
	if subject.Name != "" {
		id = subject.Name + " " + subject.Code
	}
	return []string{
		id + " 最新消息",
		id + " 研究报告",
		id + " 财务分析",
		id + " 股价走势",
		id + " 行业地位",
	}
}
