// errors.go — ошибки бизнес-логики сервисного слоя.
// Пять видов, различимых через errors.Is; человекочитаемая причина
// добавляется обёрткой fmt.Errorf("%w: …"). Ошибки коллабораторов
// (БД, хранилище) наружу в сыром виде не выходят.
package service

import "errors"

var (
	// ErrNotFound — живая запись или действующая ссылка не найдена.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrPermissionDenied — проверка роли или владения не пройдена.
	ErrPermissionDenied = errors.New("доступ запрещён")
	// ErrValidation — некорректный вход: недопустимый тип, размер, параметры.
	ErrValidation = errors.New("ошибка валидации")
	// ErrBusinessRule — нарушение бизнес-правила: квоты, частичная активация.
	ErrBusinessRule = errors.New("нарушение бизнес-правила")
	// ErrStorage — ошибка нижележащего хранилища (БД или объектного).
	ErrStorage = errors.New("ошибка хранилища")
)
