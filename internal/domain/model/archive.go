// Пакет model — доменные модели dump-module.
// ArchiveName — разобранное каноническое имя архива,
// ArchiveRecord — строка каталога, собираемая при каждом листинге.
package model

import (
	"time"
)

// Extension — расширение файла архива.
type Extension string

const (
	// ExtSQL — дамп базы данных
	ExtSQL Extension = "sql"
	// ExtZip — zip-архив директории
	ExtZip Extension = "zip"
)

// Extensions возвращает допустимые расширения архивов.
func Extensions() []Extension {
	return []Extension{ExtSQL, ExtZip}
}

// Valid проверяет, входит ли расширение в допустимый набор.
func (e Extension) Valid() bool {
	switch e {
	case ExtSQL, ExtZip:
		return true
	}
	return false
}

// ContentType возвращает MIME-тип для отдачи архива клиенту.
func (e Extension) ContentType() string {
	switch e {
	case ExtSQL:
		return "application/sql"
	case ExtZip:
		return "application/zip"
	}
	return "application/octet-stream"
}

// ArchiveName — неизменяемое значение: базовое имя, время создания
// (с точностью до секунды, без часового пояса) и расширение.
// Каноническая форма: {base}_{YYYYMMDD}_{HHMMSS}.{ext}
type ArchiveName struct {
	// BaseName — санитизированное имя без символов '_' и разделителей пути
	BaseName string `json:"base_name"`
	// CreatedAt — время создания архива
	CreatedAt time.Time `json:"created_at"`
	// Extension — sql или zip
	Extension Extension `json:"extension"`
}

// Формат даты и времени в имени архива.
const (
	DateLayout     = "20060102"
	TimeLayout     = "150405"
	DateTimeLayout = DateLayout + "_" + TimeLayout
)

// Filename возвращает каноническое имя файла.
func (n ArchiveName) Filename() string {
	return n.BaseName + "_" + n.CreatedAt.Format(DateTimeLayout) + "." + string(n.Extension)
}

// String реализует fmt.Stringer.
func (n ArchiveName) String() string {
	return n.Filename()
}

// ArchiveRecord — запись каталога архивов. Не персистентна,
// строится из содержимого директории хранения на каждый запрос.
type ArchiveRecord struct {
	Name ArchiveName `json:"name"`
	// Filename — имя файла на диске (совпадает с Name.Filename())
	Filename string `json:"filename"`
	// SizeBytes — размер файла в байтах
	SizeBytes int64 `json:"size_bytes"`
	// DownloadURL — ссылка для скачивания, выводится из имени файла
	DownloadURL string `json:"download_url"`
}

// Kind — логическая цель экспорта.
type Kind string

const (
	KindDatabase  Kind = "database"
	KindThemes    Kind = "themes"
	KindPlugins   Kind = "plugins"
	KindUploads   Kind = "uploads"
	KindLanguages Kind = "languages"
	// KindFolder — произвольная директория, путь задаётся в Target.Path
	KindFolder Kind = "folder"
)

// Kinds возвращает все цели экспорта в порядке вывода в CLI.
func Kinds() []Kind {
	return []Kind{KindDatabase, KindThemes, KindPlugins, KindUploads, KindLanguages, KindFolder}
}

// ParseKind преобразует строку в Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Extension возвращает расширение архива для цели экспорта.
func (k Kind) Extension() Extension {
	if k == KindDatabase {
		return ExtSQL
	}
	return ExtZip
}

// DefaultBaseName — базовое имя архива, если пользователь не указал --name.
func (k Kind) DefaultBaseName() string {
	return string(k)
}

// Target — цель экспорта. Path используется только для KindFolder.
type Target struct {
	Kind Kind
	Path string
}

// FolderTarget создаёт цель экспорта произвольной директории.
func FolderTarget(path string) Target {
	return Target{Kind: KindFolder, Path: path}
}
