package model

// Holiday 节假日日历，存在且 is_active 的日期视为节假日
type Holiday struct {
	BaseModel
	Date     string `gorm:"type:varchar(10);not null;uniqueIndex:idx_holidays_date" json:"date"`
	Name     string `gorm:"type:varchar(128)" json:"name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName 指定表名
func (Holiday) TableName() string {
	return "holidays"
}
