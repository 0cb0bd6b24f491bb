package report

import (
	"fmt"
	"strings"

	"github.com/kanpan0/kanpan/internal/tushare"
)

// Rating thresholds and financial-health cutoffs used by the fallback
// template. Ratios, not percentages.
const (
	peStrongBuy = 10.0 // below: 强烈推荐
	peBuy       = 15.0 // below: 推荐
	peNeutral   = 30.0 // above: 中性
	peCaution   = 50.0 // above: 谨慎

	peIndustryLow  = 20.0 // PE below this reads as 低于行业平均
	peIndustryHigh = 30.0 // PE above this reads as 高于行业平均

	soundLeverage = 0.5  // debt/assets below this is 稳健
	highLeverage  = 0.6  // debt/assets above this is 负债率偏高
	strongMargin  = 0.2  // gross margin above this is 较强
	highGrowth    = 0.15 // YoY sales growth above this is 强劲

	sentimentSwing = 10.0 // window change (%) beyond which sentiment tips
)

const disclaimer = "*本研报仅供参考,不构成任何投资建议。投资者据此操作,风险自担。*"

// renderTemplate produces the deterministic Markdown report used when
// model generation is unavailable. Every figure degrades to "N/A" rather
// than failing, so a partially populated dataset still yields a report.
func renderTemplate(ds *Dataset) string {
	income := latest(ds.Financials.Income)
	balance := latest(ds.Financials.Balance)
	cashflow := latest(ds.Financials.Cashflow)
	indicators := latest(ds.Financials.Indicators)
	market := summarizeMarket(ds.MarketHistory)

	name := ds.Identity.String("name")
	tsCode := ds.Identity.String("ts_code")
	industry := ds.Identity.String("industry")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s(%s) 研究报告\n\n", name, tsCode)

	b.WriteString("## 公司概况\n\n")
	fmt.Fprintf(&b, "%s是一家%s行业的上市公司,于%s在%s上市。公司位于%s,是行业内的重要参与者。\n\n",
		name, industry,
		orDefault(ds.Identity.String("list_date"), "未知日期"),
		orDefault(ds.Identity.String("exchange"), "中国"),
		orDefault(ds.Identity.String("area"), "中国"))

	b.WriteString("## 财务分析\n\n")
	b.WriteString("### 盈利能力\n")
	fmt.Fprintf(&b, "- 营业收入: %s 元\n", formatNumber(income["total_revenue"]))
	fmt.Fprintf(&b, "- 净利润: %s 元\n", formatNumber(income["n_income"]))
	fmt.Fprintf(&b, "- 每股收益: %s 元\n", cellOrNA(indicators, "eps"))
	fmt.Fprintf(&b, "- 毛利率: %s%%\n\n", formatPercent(indicators["grossprofit_margin"]))

	margin, hasMargin := indicators.Float("grossprofit_margin")
	profitability := "一般"
	if hasMargin && margin > strongMargin {
		profitability = "较强"
	}
	fmt.Fprintf(&b, "公司盈利能力指标表现%s,需持续关注收入增长的可持续性。\n\n", profitability)

	b.WriteString("### 资产状况\n")
	fmt.Fprintf(&b, "- 总资产: %s 元\n", formatNumber(balance["total_assets"]))
	fmt.Fprintf(&b, "- 总负债: %s 元\n", formatNumber(balance["total_liab"]))
	fmt.Fprintf(&b, "- 所有者权益: %s 元\n", formatNumber(balance["total_hldr_eqy_exc_min_int"]))

	leverage, hasLeverage := leverageRatio(balance)
	if hasLeverage {
		fmt.Fprintf(&b, "- 资产负债率: %.2f%%\n\n", leverage*100)
	} else {
		b.WriteString("- 资产负债率: N/A%\n\n")
	}
	if hasLeverage && leverage < soundLeverage {
		b.WriteString("资产结构较为稳健,负债水平可控。\n\n")
	} else {
		b.WriteString("资产结构存在一定风险,负债水平需关注。\n\n")
	}

	b.WriteString("### 现金流\n")
	fmt.Fprintf(&b, "- 经营活动现金流: %s 元\n", formatNumber(cashflow["n_cashflow_act"]))
	fmt.Fprintf(&b, "- 投资活动现金流: %s 元\n", formatNumber(cashflow["n_cashflow_inv_act"]))
	fmt.Fprintf(&b, "- 筹资活动现金流: %s 元\n\n", formatNumber(cashflow["n_cash_flows_fnc_act"]))

	if opCash, ok := cashflow.Float("n_cashflow_act"); ok && opCash > 0 {
		b.WriteString("现金流状况良好,经营活动产生正向现金流。\n\n")
	} else {
		b.WriteString("现金流状况存在一定压力,需关注经营活动现金流改善。\n\n")
	}

	b.WriteString("## 市场表现\n\n")
	fmt.Fprintf(&b, "- 当前价格: %s 元\n", cellOrNA(market.Last, "close"))
	if market.HasChange {
		fmt.Fprintf(&b, "- 期间涨跌幅: %.2f%%\n", market.ChangePct)
	} else {
		b.WriteString("- 期间涨跌幅: N/A%\n")
	}
	if market.HasExtremes {
		fmt.Fprintf(&b, "- 最高价: %s 元\n", groupThousands(market.High))
		fmt.Fprintf(&b, "- 最低价: %s 元\n\n", groupThousands(market.Low))
	} else {
		b.WriteString("- 最高价: N/A 元\n- 最低价: N/A 元\n\n")
	}

	trend := "低于预期"
	if market.HasChange && market.ChangePct > 0 {
		trend = "积极"
	}
	sentiment := "不明确"
	if market.HasChange {
		switch {
		case market.ChangePct > sentimentSwing:
			sentiment = "乐观"
		case market.ChangePct < -sentimentSwing:
			sentiment = "悲观"
		default:
			sentiment = "中性"
		}
	}
	fmt.Fprintf(&b, "股价表现%s,市场情绪%s。\n\n", trend, sentiment)

	b.WriteString("## 风险分析\n\n")
	fmt.Fprintf(&b, "1. 行业风险\n   - %s行业周期性波动风险\n   - 行业政策变动风险\n   - 市场竞争加剧风险\n\n", industry)
	financialRisk := "整体可控"
	if hasLeverage && leverage > highLeverage {
		financialRisk = "负债率偏高"
	}
	fmt.Fprintf(&b, "2. 公司风险\n   - 经营风险: 业务模式可持续性\n   - 财务风险: %s\n   - 管理风险: 运营效率及治理结构\n\n", financialRisk)
	b.WriteString("3. 市场风险\n   - 宏观经济波动风险\n   - 股市系统性风险\n   - 流动性风险\n\n")

	b.WriteString("## 投资建议\n\n")
	b.WriteString(investmentAdvice(ds, indicators, market))
	b.WriteString("\n\n")
	b.WriteString(disclaimer)

	return b.String()
}

// investmentAdvice derives a rating from trailing PE plus margin and
// growth commentary. Without a positive EPS and a latest close there is
// no basis for a rating and it says so.
func investmentAdvice(ds *Dataset, indicators tushare.Record, market marketSummary) string {
	lastClose, hasClose := market.Last.Float("close")
	eps, hasEPS := indicators.Float("eps")
	if !hasClose || !hasEPS || eps <= 0 {
		return "基于当前可获取的数据,暂无法给出明确投资建议。建议投资者进一步关注公司后续经营数据及行业动态。"
	}

	pe := lastClose / eps

	advice := "谨慎推荐"
	reason := "基于当前估值水平及行业地位"
	switch {
	case pe < peStrongBuy:
		advice = "强烈推荐"
		reason = "当前估值偏低,具有较好的投资价值"
	case pe < peBuy:
		advice = "推荐"
		reason = "当前估值处于合理区间,具有一定投资价值"
	case pe > peCaution:
		advice = "谨慎"
		reason = "当前估值显著偏高,建议等待更好的买入时机"
	case pe > peNeutral:
		advice = "中性"
		reason = "当前估值偏高,需关注盈利增长的持续性"
	}

	peCompare := "接近"
	switch {
	case pe < peIndustryLow:
		peCompare = "低于"
	case pe > peIndustryHigh:
		peCompare = "高于"
	}

	financialStatus := "一般,盈利能力有待提升"
	if margin, ok := indicators.Float("grossprofit_margin"); ok && margin > strongMargin {
		financialStatus = "良好,具有较强盈利能力"
	}

	growth, _ := indicators.Float("yoy_sales_growth")
	growthComment := "收入增速放缓或下滑"
	switch {
	case growth > highGrowth:
		growthComment = "强劲,收入保持高增长"
	case growth > 0:
		growthComment = "稳定,收入保持增长"
	}

	return fmt.Sprintf(`投资评级: **%s**

投资逻辑:
1. 估值水平: PE %.2f倍,%s行业平均水平
2. 行业地位: %s行业内的重要企业
3. 财务状况: %s
4. 成长性: %s

%s`, advice, pe, peCompare, ds.Identity.String("industry"), financialStatus, growthComment, reason)
}

// leverageRatio returns liabilities over assets when both cells are present
// and assets are non-zero.
func leverageRatio(balance tushare.Record) (float64, bool) {
	assets, ok1 := balance.Float("total_assets")
	liab, ok2 := balance.Float("total_liab")
	if !ok1 || !ok2 || assets == 0 {
		return 0, false
	}
	return liab / assets, true
}

// cellOrNA renders a raw cell as its Go string form, or "N/A" when absent.
func cellOrNA(r tushare.Record, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return "N/A"
	}
	if f, ok := v.(float64); ok {
		return groupThousands(f)
	}
	return fmt.Sprint(v)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
