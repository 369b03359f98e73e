// export.go — подкоманды экспорта: database, themes, plugins, uploads, languages, folder.
package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// exportDescriptions — краткие описания подкоманд экспорта.
var exportDescriptions = map[model.Kind]string{
	model.KindDatabase:  "Экспортировать базу данных в SQL-дамп",
	model.KindThemes:    "Упаковать директорию тем в zip-архив",
	model.KindPlugins:   "Упаковать директорию плагинов в zip-архив",
	model.KindUploads:   "Упаковать директорию загрузок в zip-архив",
	model.KindLanguages: "Упаковать директорию языковых файлов в zip-архив",
}

// newExportCmd создаёт подкоманду экспорта фиксированной цели.
func newExportCmd(kind model.Kind) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: exportDescriptions[kind],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, model.Target{Kind: kind}, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "",
		fmt.Sprintf("базовое имя архива (по умолчанию %q)", kind.DefaultBaseName()))

	return cmd
}

// newFolderCmd создаёт подкоманду упаковки произвольной директории.
func newFolderCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "folder <path>",
		Short: "Упаковать произвольную директорию в zip-архив",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("некорректный путь %s: %w", args[0], err)
			}
			return runExport(cmd, model.FolderTarget(path), name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "",
		fmt.Sprintf("базовое имя архива (по умолчанию %q)", model.KindFolder.DefaultBaseName()))

	return cmd
}

// runExport выполняет экспорт и печатает путь к созданному архиву.
func runExport(cmd *cobra.Command, target model.Target, name string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.export.Export(cmd.Context(), target, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Success: %s dumped successfully at \"%s\".\n", exportLabel(target.Kind), res.Path)
	return nil
}

// exportLabel — название цели в сообщении об успехе: "Database", "Themes", ...
func exportLabel(kind model.Kind) string {
	s := string(kind)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
