package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpan0/kanpan/internal/search"
)

func TestMarshalStart(t *testing.T) {
	wire := Marshal(StartEvent{
		Message: "开始生成贵州茅台的研究报告",
		Title:   "贵州茅台 投资研究报告生成",
		Steps:   stageNames,
	})

	assert.Equal(t, KindStart, wire["type"])
	assert.Equal(t, 0, wire["step"])
	assert.Equal(t, 0, wire["percentage"])

	display, ok := wire["display"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "workflow", display["kind"])
	assert.Equal(t, "start", display["status"])
	assert.Equal(t, stageNames, display["steps"])
}

func TestMarshalProgress(t *testing.T) {
	wire := Marshal(ProgressEvent{Message: "正在获取财务数据...", Step: 2, Percentage: 40})
	assert.Equal(t, KindProgress, wire["type"])
	assert.Equal(t, 2, wire["step"])
	assert.Equal(t, 40, wire["percentage"])
}

func TestMarshalDisplayFlattensContent(t *testing.T) {
	wire := Marshal(DisplayEvent{
		DisplayKind: DisplayStockInfo,
		Title:       "股票信息: 贵州茅台 (600519.SH)",
		Content:     map[string]any{"name": "贵州茅台", "code": "600519.SH"},
	})

	display, ok := wire["display"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DisplayStockInfo, display["kind"])

	// Content crosses the wire as a JSON string, not a nested object.
	flat, ok := display["content"].(string)
	require.True(t, ok)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(flat), &decoded))
	assert.Equal(t, "贵州茅台", decoded["name"])

	_, hasResults := display["results"]
	assert.False(t, hasResults)
	_, hasQuery := display["query"]
	assert.False(t, hasQuery)
}

func TestMarshalDisplayFlattensResults(t *testing.T) {
	wire := Marshal(DisplayEvent{
		DisplayKind: DisplaySearchResults,
		Title:       "最新研报信息",
		Query:       "贵州茅台 最新研报 投资分析 财务数据",
		Results: []search.Result{
			{Title: "标题", Content: "内容", URL: "https://example.com"},
		},
	})

	display := wire["display"].(map[string]any)
	assert.Equal(t, DisplaySearchResults, display["kind"])
	assert.NotEmpty(t, display["query"])

	flat, ok := display["results"].(string)
	require.True(t, ok)
	var decoded []search.Result
	require.NoError(t, json.Unmarshal([]byte(flat), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "https://example.com", decoded[0].URL)
}

func TestMarshalComplete(t *testing.T) {
	wire := Marshal(CompleteEvent{Message: "研报生成完成，请查看详细内容", Content: "# 报告"})
	assert.Equal(t, KindComplete, wire["type"])

	flat, ok := wire["data"].(string)
	require.True(t, ok)
	var data struct {
		Completed bool   `json:"completed"`
		Length    int    `json:"length"`
		Content   string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(flat), &data))
	assert.True(t, data.Completed)
	assert.Equal(t, len("# 报告"), data.Length)
	assert.Equal(t, "# 报告", data.Content)
}

func TestMarshalError(t *testing.T) {
	wire := Marshal(ErrorEvent{
		Err:        "研报生成失败: 未找到股票信息",
		Details:    "处理过程中遇到了问题，请稍后再试",
		Suggestion: "您可以尝试使用不同的股票名称或股票代码",
	})
	assert.Equal(t, KindError, wire["type"])
	assert.Equal(t, "研报生成失败: 未找到股票信息", wire["error"])
	assert.NotEmpty(t, wire["details"])
	assert.NotEmpty(t, wire["suggestion"])
}
