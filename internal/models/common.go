package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Warning is a non-fatal note attached to a successful write.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes emitted by meeting administration.
const (
	WarningUntilClamped             = "UNTIL_CLAMPED"
	WarningExceptionOutsideTerm     = "EXCEPTION_OUTSIDE_TERM"
	WarningExceptionNotOnMeetingDay = "EXCEPTION_NOT_ON_MEETING_DAY"
	WarningNoOccurrences            = "NO_OCCURRENCES"
)
