// root.go — корневая команда dump и регистрация подкоманд.
package main

import (
	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/dump-module/internal/config"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// newRootCmd создаёт корневую команду dump.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dump",
		Short: "Экспорт базы данных и директорий WordPress в архивы",
		Long: `dump создаёт архивы в директории хранения (DUMP_STORAGE_DIR):
SQL-дамп базы данных и zip-архивы тем, плагинов, загрузок и языков.

Имя архива: {name}_{YYYYMMDD}_{HHMMSS}.{sql|zip}

Примеры:
  dump database
  dump themes --name site-backup
  dump folder /var/www/html/wp-content/mu-plugins
  dump list --month 202401 --orderby filename --order asc
  dump serve`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for _, kind := range model.Kinds() {
		if kind == model.KindFolder {
			continue
		}
		root.AddCommand(newExportCmd(kind))
	}
	root.AddCommand(
		newFolderCmd(),
		newListCmd(),
		newMonthsCmd(),
		newDeleteCmd(),
		newServeCmd(),
	)

	return root
}
