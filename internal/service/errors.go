// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — архив не найден в директории хранения.
	ErrNotFound = errors.New("архив не найден")
	// ErrAlreadyExists — архив с таким именем уже существует.
	ErrAlreadyExists = errors.New("архив с таким именем уже существует")
	// ErrVerificationFailed — после экспорта архив не появился на диске.
	ErrVerificationFailed = errors.New("архив не найден после экспорта")
	// ErrInvalidFilename — имя файла не является простым именем в директории хранения.
	ErrInvalidFilename = errors.New("недопустимое имя файла")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
