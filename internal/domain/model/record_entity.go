package model

import "time"

// RecordEntity é a representação de banco de dados de um registro
type RecordEntity struct {
	ID                       string    `gorm:"primaryKey;size:36"`
	UserEmail                string    `gorm:"size:100;not null;index:idx_records_owner_day,priority:1"`
	Date                     string    `gorm:"size:10;not null;index:idx_records_owner_day,priority:2"`
	Time                     string    `gorm:"size:8;not null"`
	Text                     string    `gorm:"size:255;not null"`
	NumberOfCalories         int       `gorm:"not null"`
	LessThanExpectedCalories bool      `gorm:"not null"`
	CreatedAt                time.Time `gorm:"autoCreateTime"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime"`
}

// TableName define o nome da tabela
func (RecordEntity) TableName() string {
	return "records"
}

// ToModel converte a entidade para o modelo de domínio
func (e *RecordEntity) ToModel() *Record {
	return &Record{
		ID:                       e.ID,
		UserEmail:                e.UserEmail,
		Date:                     e.Date,
		Time:                     e.Time,
		Text:                     e.Text,
		NumberOfCalories:         e.NumberOfCalories,
		LessThanExpectedCalories: e.LessThanExpectedCalories,
		CreatedAt:                e.CreatedAt,
	}
}

// RecordEntityFromModel converte o modelo de domínio para a entidade
func RecordEntityFromModel(r *Record) *RecordEntity {
	return &RecordEntity{
		ID:                       r.ID,
		UserEmail:                r.UserEmail,
		Date:                     r.Date,
		Time:                     r.Time,
		Text:                     r.Text,
		NumberOfCalories:         r.NumberOfCalories,
		LessThanExpectedCalories: r.LessThanExpectedCalories,
		CreatedAt:                r.CreatedAt,
	}
}
