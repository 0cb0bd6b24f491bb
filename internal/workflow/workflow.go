package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/report"
	"github.com/kanpan0/kanpan/internal/resolver"
	"github.com/kanpan0/kanpan/internal/search"
	"github.com/kanpan0/kanpan/internal/tushare"
)

// Progress checkpoints per stage. Advisory UI hints; the invariant is that
// they never decrease within one run.
const (
	pctResolving  = 25
	pctFinancials = 40
	pctMarket     = 60
	pctGenerating = 80
	pctDone       = 100
)

const (
	// marketWindowDays is how far back the daily bar window reaches from
	// the report date.
	marketWindowDays = 90

	// preSearchResults is how many hits each preparatory search requests.
	preSearchResults = 5

	// supplementaryLimit caps how many research-note hits are carried into
	// the generation prompt.
	supplementaryLimit = 3
)

// stageNames is the checklist rendered by the client, announced once in the
// start event.
var stageNames = []string{
	"股票信息查询",
	"财务数据分析",
	"市场数据分析",
	"行业对比分析",
	"研报内容生成",
}

// Resolver turns a company name into an exchange-qualified identifier.
type Resolver interface {
	Resolve(ctx context.Context, subjectName string) (resolver.Identifier, error)
}

// Provider is the market-data surface the pipeline fetches from.
type Provider interface {
	StockBasic(ctx context.Context, tsCode string) ([]tushare.Record, error)
	FetchFinancials(ctx context.Context, tsCode, period string) (*tushare.Financials, error)
	Daily(ctx context.Context, tsCode, startDate, endDate string) ([]tushare.Record, error)
}

// Generator produces the report text from an assembled dataset.
type Generator interface {
	Generate(ctx context.Context, ds *report.Dataset) (string, error)
}

// Request asks for a report by company name. The identifier is resolved
// through web search before the pipeline runs.
type Request struct {
	SubjectName string
	ReportDate  string // YYYYMMDD; empty selects the latest quarter end
	ReportType  string
	Model       string
}

// CodeRequest asks for a report by known exchange-qualified code, skipping
// resolution.
type CodeRequest struct {
	StockCode  string
	ReportDate string // YYYYMMDD; empty selects the latest quarter end
	ReportType string
	Model      string
}

// Orchestrator sequences the report stages and emits one ordered event
// stream per run. It holds no per-run state; a single instance serves
// concurrent requests.
type Orchestrator struct {
	searcher  search.Searcher
	resolver  Resolver
	provider  Provider
	generator Generator
	logger    log.Logger
	now       func() time.Time
}

// New wires an orchestrator. searcher may be nil, which disables the
// preparatory searches of RunByName; the other collaborators are required.
func New(searcher search.Searcher, res Resolver, provider Provider, gen Generator, logger log.Logger) (*Orchestrator, error) {
	if res == nil {
		return nil, errors.New("workflow: resolver is nil")
	}
	if provider == nil {
		return nil, errors.New("workflow: provider is nil")
	}
	if gen == nil {
		return nil, errors.New("workflow: generator is nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		searcher:  searcher,
		resolver:  res,
		provider:  provider,
		generator: gen,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// RunByName resolves subjectName to a stock code, gathers supplementary
// research context, and runs the full pipeline. Every event goes to sink in
// order; the returned error mirrors the terminal error event, so callers
// can fail the enclosing exchange as well.
func (o *Orchestrator) RunByName(ctx context.Context, req Request, sink Sink) (string, error) {
	notes := o.preSearch(ctx, req.SubjectName, sink)

	sink.Emit(StartEvent{
		Message: fmt.Sprintf("开始生成%s的研究报告", req.SubjectName),
		Title:   fmt.Sprintf("%s 投资研究报告生成", req.SubjectName),
		Steps:   stageNames,
	})
	sink.Emit(ProgressEvent{
		Message:    fmt.Sprintf("正在查询%s的股票信息...", req.SubjectName),
		Step:       1,
		Percentage: pctResolving,
	})

	id, err := o.resolver.Resolve(ctx, req.SubjectName)
	if err != nil {
		resolveErr := fmt.Errorf("resolve %q: %w", req.SubjectName, err)
		sink.Emit(ErrorEvent{
			Err:        fmt.Sprintf("研报生成失败: 无法找到%s的股票代码,请提供准确的股票名称", req.SubjectName),
			Details:    "在处理股票数据时遇到了问题",
			Suggestion: "请尝试使用完整的股票名称或股票代码",
		})
		return "", resolveErr
	}
	o.logger.Info("resolved stock identifier",
		"subject", req.SubjectName, "code", id.String())

	reportDate := req.ReportDate
	if reportDate == "" {
		reportDate = DefaultReportDate(o.now())
	}

	supplementary := notes
	if len(supplementary) > supplementaryLimit {
		supplementary = supplementary[:supplementaryLimit]
	}

	return o.pipeline(ctx, sink, id.String(), reportDate, req.Model, supplementary)
}

// RunByCode runs the pipeline for an already-known identifier.
func (o *Orchestrator) RunByCode(ctx context.Context, req CodeRequest, sink Sink) (string, error) {
	sink.Emit(StartEvent{
		Message: fmt.Sprintf("开始生成%s的研究报告", req.StockCode),
		Title:   fmt.Sprintf("%s 投资研究报告生成", req.StockCode),
		Steps:   stageNames,
	})
	sink.Emit(ProgressEvent{
		Message:    "正在获取股票基本信息...",
		Step:       1,
		Percentage: pctResolving,
	})

	reportDate := req.ReportDate
	if reportDate == "" {
		reportDate = DefaultReportDate(o.now())
	}

	return o.pipeline(ctx, sink, req.StockCode, reportDate, req.Model, nil)
}

// preSearch gathers company-profile and research-note hits before the run
// starts, emitting one search_results panel per query. Failures here are
// logged and skipped: the pipeline can produce a report without them.
func (o *Orchestrator) preSearch(ctx context.Context, subject string, sink Sink) []report.ContextItem {
	if o.searcher == nil {
		return nil
	}

	basicQuery := fmt.Sprintf("%s 股票 公司简介 行业分析", subject)
	if resp, err := o.searcher.Search(ctx, basicQuery, preSearchResults, search.DepthAdvanced); err != nil {
		o.logger.Warn("company profile search failed", "query", basicQuery, "error", err)
	} else {
		sink.Emit(DisplayEvent{
			DisplayKind: DisplaySearchResults,
			Title:       "股票基本信息",
			Query:       basicQuery,
			Results:     resp.Results,
		})
	}

	notesQuery := fmt.Sprintf("%s 最新研报 投资分析 财务数据", subject)
	resp, err := o.searcher.Search(ctx, notesQuery, preSearchResults, search.DepthAdvanced)
	if err != nil {
		o.logger.Warn("research notes search failed", "query", notesQuery, "error", err)
		return nil
	}
	sink.Emit(DisplayEvent{
		DisplayKind: DisplaySearchResults,
		Title:       "最新研报信息",
		Query:       notesQuery,
		Results:     resp.Results,
	})

	items := make([]report.ContextItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, report.ContextItem{Title: r.Title, Content: r.Content, URL: r.URL})
	}
	return items
}

// pipeline runs the staged fetch-and-generate sequence shared by both entry
// points. It assumes the start event and the step-1 progress event were
// already emitted.
func (o *Orchestrator) pipeline(ctx context.Context, sink Sink, tsCode, reportDate, model string, supplementary []report.ContextItem) (string, error) {
	basic, err := o.provider.StockBasic(ctx, tsCode)
	if err != nil {
		return "", o.fail(sink, fmt.Errorf("fetch stock basic info for %s: %w", tsCode, err))
	}
	if len(basic) == 0 {
		return "", o.fail(sink, fmt.Errorf("%w: %s", ErrStockNotFound, tsCode))
	}
	identity := basic[0]

	sink.Emit(DisplayEvent{
		DisplayKind: DisplayStockInfo,
		Title:       fmt.Sprintf("股票信息: %s (%s)", identity.String("name"), tsCode),
		Content: map[string]any{
			"name":     identity.String("name"),
			"code":     tsCode,
			"industry": identity.String("industry"),
			"area":     identity.String("area"),
			"market":   identity.String("market"),
			"listDate": identity.String("list_date"),
		},
	})
	sink.Emit(ProgressEvent{Message: "正在获取财务数据...", Step: 2, Percentage: pctFinancials})

	financials, err := o.provider.FetchFinancials(ctx, tsCode, reportDate)
	if err != nil {
		return "", o.fail(sink, fmt.Errorf("fetch financials for %s: %w", tsCode, err))
	}

	sink.Emit(DisplayEvent{
		DisplayKind: DisplayFinancialInfo,
		Title:       "财务数据概览",
		Content: map[string]any{
			"income":     fmt.Sprintf("%d条记录", len(financials.Income)),
			"balance":    fmt.Sprintf("%d条记录", len(financials.Balance)),
			"cashflow":   fmt.Sprintf("%d条记录", len(financials.Cashflow)),
			"indicators": fmt.Sprintf("%d条记录", len(financials.Indicators)),
		},
	})
	sink.Emit(ProgressEvent{Message: "正在获取市场行情数据...", Step: 3, Percentage: pctMarket})

	startDate, err := windowStart(reportDate, marketWindowDays)
	if err != nil {
		return "", o.fail(sink, err)
	}
	bars, err := o.provider.Daily(ctx, tsCode, startDate, reportDate)
	if err != nil {
		return "", o.fail(sink, fmt.Errorf("fetch daily bars for %s: %w", tsCode, err))
	}

	sink.Emit(DisplayEvent{
		DisplayKind: DisplayMarketInfo,
		Title:       "市场行情概览",
		Content:     marketOverview(bars, startDate, reportDate),
	})
	sink.Emit(ProgressEvent{Message: "正在生成研报内容...", Step: 4, Percentage: pctGenerating})

	dataset := &report.Dataset{
		Identity:      identity,
		Financials:    financials,
		MarketHistory: bars,
		Supplementary: supplementary,
		Model:         model,
	}
	text, err := o.generator.Generate(ctx, dataset)
	if err != nil {
		return "", o.fail(sink, fmt.Errorf("generate report for %s: %w", tsCode, err))
	}

	sink.Emit(ProgressEvent{Message: "研报生成完成，正在优化展示...", Step: 5, Percentage: pctDone})
	sink.Emit(CompleteEvent{Message: "研报生成完成，请查看详细内容", Content: text})

	return text, nil
}

// ErrStockNotFound indicates the provider has no listing record for the
// requested code.
var ErrStockNotFound = errors.New("未找到股票信息")

// fail emits the terminal error event and returns err for the caller,
// satisfying the dual-reporting rule: stream and enclosing exchange both
// observe the failure.
func (o *Orchestrator) fail(sink Sink, err error) error {
	o.logger.Error("report workflow failed", "error", err)
	sink.Emit(ErrorEvent{
		Err:        fmt.Sprintf("研报生成失败: %s", err.Error()),
		Details:    "处理过程中遇到了问题，请稍后再试",
		Suggestion: "您可以尝试使用不同的股票名称或股票代码",
	})
	return err
}

// marketOverview condenses the bar window into the market-info panel fields.
func marketOverview(bars []tushare.Record, startDate, endDate string) map[string]any {
	content := map[string]any{
		"dataPoints": fmt.Sprintf("%d个交易日", len(bars)),
		"startDate":  startDate,
		"endDate":    endDate,
	}
	if len(bars) == 0 {
		content["priceChange"] = "N/A"
		return content
	}

	first, _ := bars[0].Float("close")
	last, _ := bars[len(bars)-1].Float("close")
	content["startPrice"] = first
	content["endPrice"] = last
	if first != 0 {
		content["priceChange"] = fmt.Sprintf("%.2f%%", (last-first)/first*100)
	} else {
		content["priceChange"] = "N/A"
	}
	return content
}
