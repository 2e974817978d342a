package model

import (
	"sort"
	"time"
)

// Formatos aceitos para data e hora de um registro
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// MaxRecordCalories é o maior valor aceito para um único registro
const MaxRecordCalories = 100000

// Record é uma refeição registrada por um usuário
type Record struct {
	ID                       string    `json:"id"`
	UserEmail                string    `json:"userEmail"`
	Date                     string    `json:"date"`
	Time                     string    `json:"time"`
	Text                     string    `json:"text"`
	NumberOfCalories         int       `json:"numberOfCalories"`
	LessThanExpectedCalories bool      `json:"lessThanExpectedCalories"`
	CreatedAt                time.Time `json:"-"`
}

// SortDayBucket ordena registros pela posição no dia: hora, criação e id
func SortDayBucket(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ApplyDailyTotals recalcula lessThanExpectedCalories com soma acumulada por data.
// A soma satura em expected, então valores grandes não transbordam.
// Retorna apenas os registros cuja flag mudou.
func ApplyDailyTotals(records []*Record, expected int) []*Record {
	buckets := make(map[string][]*Record)
	for _, r := range records {
		buckets[r.Date] = append(buckets[r.Date], r)
	}

	var changed []*Record
	for _, bucket := range buckets {
		SortDayBucket(bucket)

		running := 0
		for _, r := range bucket {
			if running < expected {
				if r.NumberOfCalories >= expected-running {
					running = expected
				} else {
					running += r.NumberOfCalories
				}
			}
			flag := running < expected
			if r.LessThanExpectedCalories != flag {
				r.LessThanExpectedCalories = flag
				changed = append(changed, r)
			}
		}
	}

	return changed
}
