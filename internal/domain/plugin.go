package domain

import (
	"time"

	"github.com/google/uuid"
)

// PluginDescriptor — описание установленного плагина.
//
// Дескриптор говорит, где лежит реализация (LocationReference) и под каким
// именем она экспортирована (ExposedName). Как именно реализация
// связывается с процессом, решает plugin.Linker.
type PluginDescriptor struct {
	// ID — уникальный идентификатор дескриптора.
	ID uuid.UUID `json:"id"`

	// LocationReference — ссылка на реализацию (URL пакета, путь, имя модуля).
	LocationReference string `json:"location_reference"`

	// ExposedName — имя, под которым реализация экспортирована.
	ExposedName string `json:"exposed_name"`

	// Enabled — выключенные плагины не участвуют в разрешении типов.
	Enabled bool `json:"enabled"`

	// CreatedAt — время установки.
	CreatedAt time.Time `json:"created_at"`
}
