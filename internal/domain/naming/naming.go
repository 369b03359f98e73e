// Пакет naming — кодирование и разбор канонических имён архивов.
//
// Формат имени: {base}_{YYYYMMDD}_{HHMMSS}.{ext}, где ext — sql или zip.
// Базовое имя не может содержать '_', иначе разбор на три сегмента
// неоднозначен, поэтому Sanitize заменяет подчёркивания дефисами.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// Ошибки разбора имени архива.
var (
	ErrInvalidExtension = errors.New("недопустимое расширение архива (ожидается sql или zip)")
	ErrInvalidFormat    = errors.New("неверный формат имени архива (ожидается {name}_{YYYYMMDD}_{HHMMSS}.{ext})")
	ErrInvalidDate      = errors.New("неверный формат даты в имени архива")
	ErrInvalidTime      = errors.New("неверный формат времени в имени архива")
)

// DecodeError — ошибка разбора конкретного имени файла.
// Unwrap возвращает одну из sentinel-ошибок пакета.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// fallbackBaseName подставляется, если после санитизации имя пустое.
const fallbackBaseName = "dump"

// maxBaseNameLen — ограничение длины базового имени в рунах.
const maxBaseNameLen = 100

// Sanitize приводит базовое имя к безопасному для файловой системы виду.
// Оставляет буквы, цифры, '-' и '.'; пробельные символы и '_' заменяются на '-'.
// Никогда не возвращает ошибку: в худшем случае возвращается "dump".
func Sanitize(base string) string {
	var b strings.Builder
	lastDash := false
	n := 0
	for _, r := range base {
		if n >= maxBaseNameLen {
			break
		}
		switch {
		case unicode.IsLetter(r) || (r >= '0' && r <= '9') || r == '.':
			b.WriteRune(r)
			lastDash = false
			n++
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
				n++
			}
		}
	}

	result := strings.Trim(b.String(), "-.")
	if result == "" {
		return fallbackBaseName
	}
	return result
}

// Encode строит каноническое имя архива. Чистая функция без ошибок.
func Encode(base string, t time.Time, ext model.Extension) string {
	return New(base, t, ext).Filename()
}

// New создаёт ArchiveName из произвольного базового имени и момента времени.
// Время усекается до секунд.
func New(base string, t time.Time, ext model.Extension) model.ArchiveName {
	return model.ArchiveName{
		BaseName:  Sanitize(base),
		CreatedAt: t.Truncate(time.Second),
		Extension: ext,
	}
}

// Decode разбирает имя файла архива. Проверки выполняются по порядку:
// расширение, количество сегментов, дата, время. Частичный результат
// при ошибке не возвращается.
//
// Дата и время проверяются строже, чем "8 и 6 цифр": несуществующие
// дата (20240230) или время (246000) дают ErrInvalidDate/ErrInvalidTime
// без переноса в следующий день, и каталог пропускает такие файлы.
func Decode(filename string) (model.ArchiveName, error) {
	fail := func(err error) (model.ArchiveName, error) {
		return model.ArchiveName{}, &DecodeError{Filename: filename, Err: err}
	}

	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return fail(ErrInvalidExtension)
	}
	ext := model.Extension(filename[dot+1:])
	if !ext.Valid() {
		return fail(ErrInvalidExtension)
	}

	parts := strings.Split(filename[:dot], "_")
	if len(parts) != 3 {
		return fail(ErrInvalidFormat)
	}
	base, datePart, timePart := parts[0], parts[1], parts[2]
	if base == "" || strings.ContainsAny(base, `/\`) {
		return fail(ErrInvalidFormat)
	}

	if !allDigits(datePart, len(model.DateLayout)) {
		return fail(ErrInvalidDate)
	}
	if _, err := time.Parse(model.DateLayout, datePart); err != nil {
		return fail(ErrInvalidDate)
	}

	if !allDigits(timePart, len(model.TimeLayout)) {
		return fail(ErrInvalidTime)
	}
	if _, err := time.Parse(model.TimeLayout, timePart); err != nil {
		return fail(ErrInvalidTime)
	}

	// Время без часового пояса: трактуем как локальное
	createdAt, err := time.ParseInLocation(model.DateTimeLayout, datePart+"_"+timePart, time.Local)
	if err != nil {
		return fail(ErrInvalidDate)
	}

	return model.ArchiveName{
		BaseName:  base,
		CreatedAt: createdAt,
		Extension: ext,
	}, nil
}

// ParseExtension преобразует строку конфигурации или CLI в расширение.
// Регистр не учитывается, ведущая точка допускается.
func ParseExtension(s string) (model.Extension, error) {
	ext := model.Extension(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !ext.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtension, s)
	}
	return ext, nil
}

// IsValid — сокращение для проверки имени без получения результата.
func IsValid(filename string) bool {
	_, err := Decode(filename)
	return err == nil
}

// allDigits проверяет, что s состоит ровно из n ASCII-цифр.
func allDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
