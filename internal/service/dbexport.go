// dbexport.go — экспорт базы данных внешней командой.
//
// Создание SQL-файла полностью делегировано внешнему инструменту
// (по умолчанию "wp db export"). Команда запускается без shell:
// путь назначения передаётся последним аргументом.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DatabaseExporter — внешний экспортёр базы данных.
// ExportDatabase должен создать файл destPath; существование файла
// проверяет вызывающий код.
type DatabaseExporter interface {
	ExportDatabase(ctx context.Context, destPath string) error
}

// ErrEmptyCommand — команда экспорта не задана.
var ErrEmptyCommand = errors.New("команда экспорта БД не задана")

// maxOutputInError — сколько байт вывода команды попадает в текст ошибки.
const maxOutputInError = 512

// CommandExporter — DatabaseExporter, запускающий внешнюю команду.
type CommandExporter struct {
	command []string
	logger  *slog.Logger
}

// NewCommandExporter создаёт экспортёр. command — программа и аргументы
// (DUMP_DB_EXPORT_CMD, разбитая по пробелам).
func NewCommandExporter(command []string, logger *slog.Logger) *CommandExporter {
	return &CommandExporter{
		command: append([]string(nil), command...),
		logger:  logger.With(slog.String("component", "db_exporter")),
	}
}

// ExportDatabase запускает команду с destPath последним аргументом.
// Ненулевой код выхода — ошибка с хвостом вывода команды.
func (e *CommandExporter) ExportDatabase(ctx context.Context, destPath string) error {
	if len(e.command) == 0 {
		return ErrEmptyCommand
	}

	args := append(append([]string(nil), e.command[1:]...), destPath)
	cmd := exec.CommandContext(ctx, e.command[0], args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()

	e.logger.Debug("Команда экспорта БД завершена",
		slog.String("command", strings.Join(e.command, " ")),
		slog.String("dest", destPath),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		return fmt.Errorf("команда %q завершилась с ошибкой: %w: %s",
			e.command[0], err, tail(output.String(), maxOutputInError))
	}
	return nil
}

// tail возвращает последние n байт строки без пробелов по краям.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
