// Пакет rbac — ролевая модель сервиса файлов.
// Единственная проверка способностей — CanActOnForeignResource: может ли
// роль работать с чужими файлами и ссылками. Новые роли добавляются здесь,
// не в сервисах.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleStudent = "student"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleStudent: 1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// elevatedWeight — минимальный вес роли, дающей доступ к чужим ресурсам
// и административным операциям (verify, cleanup, статистика по всем ссылкам).
const elevatedWeight = 2

// CanActOnForeignResource сообщает, может ли роль читать и изменять
// ресурсы, которыми не владеет.
func CanActOnForeignResource(role string) bool {
	return roleWeight[role] >= elevatedWeight
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}
