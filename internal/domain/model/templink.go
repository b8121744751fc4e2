package model

import "time"

// TokenLength — длина токена временной ссылки в hex-символах (32 случайных байта).
const TokenLength = 64

// TempLink — одноразовая временная ссылка на скачивание файла.
// Жизненный цикл: active → used (ровно один раз) либо active → expired
// (производное состояние, не хранится). Использованные и истёкшие ссылки
// физически удаляются sweep'ом.
type TempLink struct {
	// ID — UUID ссылки
	ID string
	// FileID — UUID файла, на который выдана ссылка
	FileID string
	// Token — секретный токен фиксированной длины (hex)
	Token string
	// CreatedBy — идентификатор выдавшего ссылку
	CreatedBy string
	// ExpiresAt — время истечения ссылки
	ExpiresAt time.Time
	// IsUsed — ссылка уже погашена
	IsUsed bool
	// UsedAt — время погашения (опционально)
	UsedAt *time.Time
	// UsedByIP — IP-адрес погасившего (опционально)
	UsedByIP *string
	// CreatedAt — время создания ссылки
	CreatedAt time.Time
}

// IsExpired сообщает, истекла ли ссылка на момент now.
func (l *TempLink) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// IsActive сообщает, действительна ли ссылка: не погашена и не истекла.
func (l *TempLink) IsActive(now time.Time) bool {
	return !l.IsUsed && !l.IsExpired(now)
}
