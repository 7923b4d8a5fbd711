package constants

// Default worksheet names. They are the logical tabs of the ledger workbook and can be
// overridden through config.
const (
	TabMainSummary = "1.메인_요약"
	TabDailyRaw    = "2.일간_전체"
	TabWeekly      = "3.주간_기록"
	TabMonthly     = "4.월간_누적"
)

// NicknameHeader is the first header cell of every ledger-shaped tab.
const NicknameHeader = "닉네임"

// Main summary headers, read back by the viewer API.
const (
	HeaderCurrentFans = "현재 팬 수"
	HeaderMonthFans   = "이번달 팬수"
)

// AllTabs returns the default tab names in workbook order.
func AllTabs() []string {
	return []string{TabMainSummary, TabDailyRaw, TabWeekly, TabMonthly}
}
