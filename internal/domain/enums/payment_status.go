package enums

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusConfirm PaymentStatus = "CONFIRM"
)
