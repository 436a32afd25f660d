package models

import "time"

// ChatRequest はチャットボットへのメッセージです。
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ChatResponse はチャットボットの応答です。
type ChatResponse struct {
	Response    string    `json:"response"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NaturalLanguageRequest は自然言語からのタスク作成リクエストです。
type NaturalLanguageRequest struct {
	Message string `json:"message" binding:"required"`
}

// NeedsInfo は自然言語入力に不足している可能性のある情報を示します。
type NeedsInfo struct {
	Description bool `json:"description"`
	DueDate     bool `json:"due_date"`
	Reminder    bool `json:"reminder"`
}

// NaturalLanguageResponse は自然言語処理の結果です。
type NaturalLanguageResponse struct {
	Success             bool      `json:"success"`
	Message             string    `json:"message"`
	TaskID              int       `json:"task_id,omitempty"`
	NeedsAdditionalInfo NeedsInfo `json:"needs_additional_info"`
	Timestamp           time.Time `json:"timestamp"`
}
