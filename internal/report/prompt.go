package report

import (
	"encoding/json"
	"fmt"

	"github.com/kanpan0/kanpan/internal/tushare"
)

// promptPeriods is how many statement periods the prompt embeds per family.
const promptPeriods = 3

// systemPrompt frames the generation call. Output structure is fixed so the
// fallback template can render the same section headings.
const systemPrompt = `# 金融投资研报专家
你是一位资深金融分析师，擅长撰写高质量的投资研究报告。你将基于提供的股票基本信息、财务数据和市场行情，生成一份专业、深度的投资研究报告。

## 研报撰写要求

### 总体风格
- 保持专业、客观的叙述风格，使用准确的金融术语
- 深入分析数据背后的业务含义，注重数据之外的洞察
- 既要挖掘亮点，也要指出隐患
- 投资建议必须有明确的依据和逻辑

### 内容结构
1. **公司概况**：基本情况、业务模式、竞争优势及行业地位
2. **财务分析**：盈利能力、资产质量、现金流状况、投资回报（含ROE分解）
3. **市场表现**：股价走势、交易量及市场情绪、估值水平分析
4. **风险分析**：行业系统性风险、公司特有风险、财务风险、政策及监管风险
5. **投资建议**：综合评级及理由、投资逻辑及催化剂、关键风险提示

## 注意事项
- 基于事实数据进行分析，避免无根据的猜测
- 默认为中国A股市场公司撰写研报
- 以Markdown格式输出整个研报内容`

// promptInput is the structured payload embedded in the user prompt:
// identity, the three most recent periods per statement family, and
// condensed market statistics.
type promptInput struct {
	BasicInfo tushare.Record `json:"basicInfo"`
	Financial struct {
		Income     []tushare.Record `json:"income"`
		Balance    []tushare.Record `json:"balance"`
		Cashflow   []tushare.Record `json:"cashflow"`
		Indicators []tushare.Record `json:"indicators"`
	} `json:"financialData"`
	Market struct {
		Latest    tushare.Record `json:"latest"`
		Oldest    tushare.Record `json:"oldest"`
		Count     int            `json:"count"`
		High      float64        `json:"highestPrice"`
		Low       float64        `json:"lowestPrice"`
		AvgVolume float64        `json:"averageVolume"`
		ChangePct string         `json:"priceChange"`
	} `json:"marketData"`
	Supplementary []ContextItem `json:"additionalInfo"`
}

// buildPrompt renders the user prompt for the generation call.
func buildPrompt(ds *Dataset) (string, error) {
	var in promptInput
	in.BasicInfo = ds.Identity
	in.Financial.Income = head(ds.Financials.Income, promptPeriods)
	in.Financial.Balance = head(ds.Financials.Balance, promptPeriods)
	in.Financial.Cashflow = head(ds.Financials.Cashflow, promptPeriods)
	in.Financial.Indicators = head(ds.Financials.Indicators, promptPeriods)

	s := summarizeMarket(ds.MarketHistory)
	in.Market.Latest = s.Last
	in.Market.Oldest = s.First
	in.Market.Count = s.Count
	in.Market.High = s.High
	in.Market.Low = s.Low
	in.Market.AvgVolume = s.AvgVolume
	if s.HasChange {
		in.Market.ChangePct = fmt.Sprintf("%.2f", s.ChangePct)
	} else {
		in.Market.ChangePct = "N/A"
	}

	in.Supplementary = ds.Supplementary
	if in.Supplementary == nil {
		in.Supplementary = []ContextItem{}
	}

	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt input: %w", err)
	}

	return "请基于以下数据生成一份专业的投资研究报告:\n\n" + string(payload), nil
}
