package mysql

import (
	"encoding/json"
	"time"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// ApplicationModel 申请检查点存储模型。
// 完整聚合以 JSON 快照整体存取，少量查询字段单独落列。
type ApplicationModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Stage       string    `gorm:"size:32;index"`
	Status      string    `gorm:"size:32;index"`
	Interrupted bool      `gorm:"index"`
	Record      []byte    `gorm:"type:json"`
	Version     int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ApplicationModel) TableName() string {
	return "loan_applications"
}

func toApplicationModel(app *domain.LoanApplication) (*ApplicationModel, error) {
	record, err := json.Marshal(app)
	if err != nil {
		return nil, err
	}
	return &ApplicationModel{
		ID:          app.ID,
		Stage:       string(app.Stage),
		Status:      string(app.Status),
		Interrupted: app.Interrupt != nil,
		Record:      record,
		Version:     app.Version,
	}, nil
}

func toApplication(model *ApplicationModel) (*domain.LoanApplication, error) {
	var app domain.LoanApplication
	if err := json.Unmarshal(model.Record, &app); err != nil {
		return nil, err
	}
	app.Version = model.Version
	return &app, nil
}
