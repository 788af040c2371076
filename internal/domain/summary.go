package domain

const (
	// NoDataInsights — teamInsights отчёта за неделю без апдейтов.
	NoDataInsights = "No standup updates were submitted for this week."
	// FailedInsights — teamInsights, когда AI-итог построить не удалось.
	FailedInsights = "AI summary generation failed. Please review the standup entries manually."
)

// NoDataSummary возвращает итог для пустой недели.
func NoDataSummary() WeeklyReportSummary {
	return WeeklyReportSummary{TeamInsights: NoDataInsights}.Normalize()
}

// FailedSummary возвращает заглушку, которую получает вызывающий при сбое AI.
func FailedSummary() WeeklyReportSummary {
	return WeeklyReportSummary{TeamInsights: FailedInsights}.Normalize()
}
