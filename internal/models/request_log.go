package models

import "time"

// RequestLogModel tracks API request traffic for the stats dashboard.
type RequestLogModel struct {
	Base
	IP        string                 `json:"ip"        gorm:"index"`
	UA        map[string]interface{} `json:"ua"        gorm:"serializer:json;type:longtext"`
	UserID    string                 `json:"user_id"   gorm:"index"`
	Method    string                 `json:"method"`
	Path      string                 `json:"path"      gorm:"index"`
	Status    int                    `json:"status"`
	Timestamp time.Time              `json:"timestamp" gorm:"index;index:idx_ts_path,composite:1;index:idx_ts_ip,composite:1"`
}

func (RequestLogModel) TableName() string { return "request_logs" }
