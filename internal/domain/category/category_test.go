// category_test.go — unit-тесты классификатора категорий.
package category

import "testing"

// TestClassify проверяет приоритет источников категории:
// явная подсказка → слот формы → расширение → document.
func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		declaredHint string
		fieldName    string
		originalName string
		expected     string
	}{
		{
			name:         "явная допустимая подсказка перекрывает всё",
			declaredHint: CategoryContract,
			fieldName:    "avatar",
			originalName: "scan.jpg",
			expected:     CategoryContract,
		},
		{
			name:         "недопустимая подсказка игнорируется",
			declaredHint: "secret",
			fieldName:    "avatar",
			originalName: "scan.jpg",
			expected:     CategoryPhoto,
		},
		{
			name:         "слот passport",
			fieldName:    "passport",
			originalName: "scan.pdf",
			expected:     CategoryPassport,
		},
		{
			name:         "слот в верхнем регистре",
			fieldName:    "Avatar",
			originalName: "me.pdf",
			expected:     CategoryPhoto,
		},
		{
			name:         "расширение изображения",
			fieldName:    "attachment",
			originalName: "photo.PNG",
			expected:     CategoryPhoto,
		},
		{
			name:         "расширение документа",
			fieldName:    "attachment",
			originalName: "report.docx",
			expected:     CategoryDocument,
		},
		{
			name:         "неизвестное расширение",
			fieldName:    "attachment",
			originalName: "data.xyz",
			expected:     CategoryDocument,
		},
		{
			name:         "файл без расширения",
			fieldName:    "attachment",
			originalName: "README",
			expected:     CategoryDocument,
		},
		{
			name:     "все источники пусты",
			expected: CategoryDocument,
		},
		{
			name:         "heic классифицируется как фото",
			originalName: "IMG_0001.heic",
			expected:     CategoryPhoto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.declaredHint, tt.fieldName, tt.originalName)
			if result != tt.expected {
				t.Errorf("Classify(%q, %q, %q) = %q, ожидалось %q",
					tt.declaredHint, tt.fieldName, tt.originalName, result, tt.expected)
			}
		})
	}
}

// TestClassifyTotal проверяет, что классификатор тотален: любой вход
// даёт допустимую категорию.
func TestClassifyTotal(t *testing.T) {
	inputs := []struct{ hint, field, name string }{
		{"", "", ""},
		{"!!!", "???", "..."},
		{"photo ", "passport2", "file."},
		{"договор", "контракт", "файл.пдф"},
	}

	for _, in := range inputs {
		result := Classify(in.hint, in.field, in.name)
		if !IsValid(result) {
			t.Errorf("Classify(%q, %q, %q) = %q — недопустимая категория",
				in.hint, in.field, in.name, result)
		}
	}
}

// TestIsValid проверяет закрытое множество категорий.
func TestIsValid(t *testing.T) {
	for _, c := range []string{CategoryDocument, CategoryPassport, CategoryPhoto, CategoryCertificate, CategoryContract} {
		if !IsValid(c) {
			t.Errorf("IsValid(%q) = false, ожидалось true", c)
		}
	}
	for _, c := range []string{"", "Document", "photos", "unknown"} {
		if IsValid(c) {
			t.Errorf("IsValid(%q) = true, ожидалось false", c)
		}
	}
}
