package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Kind
		subject string
	}{
		{"report with subject", "生成贵州茅台的研报", Report, "贵州茅台"},
		{"report full phrase", "请帮我写一份比亚迪的研究报告", Report, "比亚迪"},
		{"report english keyword", "research report 宁德时代", Report, "宁德时代"},
		{"investment analysis", "招商银行 投资分析", Report, "招商银行"},
		{"bare stock code", "600519", Report, "600519"},
		{"bare code with spaces", "  600519  ", Report, "600519"},
		{"plain chat", "今天天气怎么样", Chat, ""},
		{"question about feature", "什么是研报", Chat, ""},
		{"how to write", "如何写研报", Chat, ""},
		{"meaning question", "研报是什么意思", Chat, ""},
		{"too short", "研", Chat, ""},
		{"empty", "   ", Chat, ""},
		{"keyword without subject", "研报", Chat, ""},
		{"too long", strings.Repeat("研报分析需求", 30), Chat, ""},
		{"five digit code is chat", "60051", Chat, ""},
		{"seven digit code is chat", "6005190", Chat, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message)
			assert.Equal(t, tt.want, got.Kind)
			if tt.want == Report {
				assert.Equal(t, tt.subject, got.Subject)
			}
		})
	}
}
