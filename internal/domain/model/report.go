package model

import (
	"time"

	"github.com/leisureprog/dead-ddos/internal/domain/enums"
)

type Report struct {
	ID          int64              `json:"id"`
	UserID      *int64             `json:"userId"`
	Message     string             `json:"message"`
	Status      enums.ReportStatus `json:"status"`
	IPAddress   string             `json:"ipAddress"`
	UserAgent   string             `json:"userAgent"`
	ProcessedAt *time.Time         `json:"processedAt"`
	ProcessedBy *int64             `json:"processedBy"`
	CreatedAt   time.Time          `json:"createdAt"`
}
