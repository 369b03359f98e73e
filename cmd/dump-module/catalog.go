// catalog.go — подкоманды каталога: list, months, delete.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/dump-module/internal/service"
)

// listTimeLayout — формат даты создания в таблице list.
const listTimeLayout = "2006-01-02 15:04:05"

// newListCmd создаёт подкоманду вывода каталога архивов.
func newListCmd() *cobra.Command {
	var (
		search  string
		month   string
		orderBy string
		order   string
		page    int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать архивы в директории хранения",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := buildQuery(search, month, orderBy, order, page)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.catalog.List(q)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printList(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "подстрока имени файла (без учёта регистра)")
	cmd.Flags().StringVarP(&month, "month", "m", "", "месяц создания: YYYYMM, YYYY-MM или all")
	cmd.Flags().StringVar(&orderBy, "orderby", "", "поле сортировки: date_added (по умолчанию) или filename")
	cmd.Flags().StringVar(&order, "order", "", "направление сортировки: desc (по умолчанию) или asc")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "номер страницы")
	cmd.Flags().BoolVar(&asJSON, "json", false, "вывод в JSON")

	return cmd
}

// buildQuery разбирает флаги list в запрос каталога.
func buildQuery(search, month, orderBy, order string, page int) (service.Query, error) {
	m, err := service.ParseMonth(month)
	if err != nil {
		return service.Query{}, err
	}
	ob, err := service.ParseOrderBy(orderBy)
	if err != nil {
		return service.Query{}, err
	}
	o, err := service.ParseOrder(order)
	if err != nil {
		return service.Query{}, err
	}
	if page < 1 {
		return service.Query{}, fmt.Errorf("%w: номер страницы должен быть >= 1", service.ErrValidation)
	}
	return service.Query{Search: search, Month: m, OrderBy: ob, Order: o, Page: page}, nil
}

// printList выводит страницу каталога таблицей.
func printList(out io.Writer, result *service.ListResult) error {
	if result.TotalItems == 0 {
		fmt.Fprintln(out, "Архивы не найдены.")
		printSkipped(out, result.Skipped)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tCREATED\tSIZE")
	for _, rec := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			rec.Filename,
			rec.Name.CreatedAt.Format(listTimeLayout),
			humanize.Bytes(uint64(rec.SizeBytes)),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nСтраница %d из %d, всего архивов: %d\n", result.Page, max(result.TotalPages, 1), result.TotalItems)
	printSkipped(out, result.Skipped)
	return nil
}

func printSkipped(out io.Writer, skipped int) {
	if skipped > 0 {
		fmt.Fprintf(out, "Пропущено файлов с неканоническими именами: %d\n", skipped)
	}
}

// newMonthsCmd создаёт подкоманду вывода месяцев, за которые есть архивы.
func newMonthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "Показать месяцы, за которые есть архивы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			months, err := a.catalog.Months()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, m := range months {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Value, m.Label, m.Count)
			}
			return tw.Flush()
		},
	}
}

// newDeleteCmd создаёт подкоманду удаления архива.
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Удалить архив из директории хранения",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.lifecycle.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Success: Deleted \"%s\".\n", args[0])
			return nil
		},
	}
}

// writeJSON выводит v в JSON с отступами.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
