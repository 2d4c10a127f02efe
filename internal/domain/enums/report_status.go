package enums

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusReviewed ReportStatus = "REVIEWED"
	ReportStatusResolved ReportStatus = "RESOLVED"
	ReportStatusRejected ReportStatus = "REJECTED"
)

func (s ReportStatus) Terminal() bool {
	return s == ReportStatusResolved || s == ReportStatusRejected
}
