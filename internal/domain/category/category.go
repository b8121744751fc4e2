// Пакет category — классификация загружаемых файлов.
// Classify — чистая тотальная функция: любой вход даёт ровно одну категорию,
// ошибок не бывает.
package category

import (
	"path/filepath"
	"strings"
)

// Категории файлов (закрытое множество).
const (
	// CategoryDocument — общий документ, категория по умолчанию
	CategoryDocument = "document"
	// CategoryPassport — скан паспорта / удостоверения личности
	CategoryPassport = "passport"
	// CategoryPhoto — фотография (аватар, фото для пропуска)
	CategoryPhoto = "photo"
	// CategoryCertificate — справка (медицинская, с места учёбы)
	CategoryCertificate = "certificate"
	// CategoryContract — подписанный договор
	CategoryContract = "contract"
)

// fieldCategories — выделенные слоты загрузки: имя поля формы однозначно
// задаёт категорию и имеет приоритет над всем остальным.
var fieldCategories = map[string]string{
	"passport":    CategoryPassport,
	"avatar":      CategoryPhoto,
	"photo":       CategoryPhoto,
	"certificate": CategoryCertificate,
	"contract":    CategoryContract,
}

// extCategories — вывод категории из расширения файла (без точки).
// Всё, чего нет в таблице, классифицируется как document.
var extCategories = map[string]string{
	"jpg":  CategoryPhoto,
	"jpeg": CategoryPhoto,
	"png":  CategoryPhoto,
	"gif":  CategoryPhoto,
	"webp": CategoryPhoto,
	"heic": CategoryPhoto,
	"bmp":  CategoryPhoto,
	"pdf":  CategoryDocument,
	"doc":  CategoryDocument,
	"docx": CategoryDocument,
	"odt":  CategoryDocument,
	"rtf":  CategoryDocument,
	"txt":  CategoryDocument,
	"xls":  CategoryDocument,
	"xlsx": CategoryDocument,
}

// Classify определяет категорию загружаемого файла.
// Приоритет: явная подсказка (если это допустимая категория) →
// выделенный слот по имени поля формы → расширение файла → document.
func Classify(declaredHint, fieldName, originalName string) string {
	if IsValid(declaredHint) {
		return declaredHint
	}

	if c, ok := fieldCategories[strings.ToLower(fieldName)]; ok {
		return c
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if c, ok := extCategories[ext]; ok {
		return c
	}

	return CategoryDocument
}

// IsValid проверяет, является ли строка допустимой категорией.
func IsValid(c string) bool {
	switch c {
	case CategoryDocument, CategoryPassport, CategoryPhoto, CategoryCertificate, CategoryContract:
		return true
	}
	return false
}
