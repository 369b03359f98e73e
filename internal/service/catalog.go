// catalog.go — каталог архивов: фильтрация, сортировка, пагинация.
//
// Каталог не персистентный: на каждый запрос перечисляется директория
// хранения и разбирается имя каждого файла. Файлы с неканоническими
// именами исключаются и учитываются в Skipped.
package service

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/dump-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dump-module/internal/storage/filestore"
)

// PageSize — фиксированный размер страницы каталога.
const PageSize = 10

// OrderBy — поле сортировки.
type OrderBy string

const (
	OrderByFilename  OrderBy = "filename"
	OrderByDateAdded OrderBy = "date_added"
)

// Order — направление сортировки.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrderBy разбирает поле сортировки. Пустая строка — date_added.
func ParseOrderBy(s string) (OrderBy, error) {
	switch OrderBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderByDateAdded:
		return OrderByDateAdded, nil
	case OrderByFilename:
		return OrderByFilename, nil
	}
	return "", fmt.Errorf("%w: недопустимое поле сортировки %q, допустимые: filename, date_added", ErrValidation, s)
}

// ParseOrder разбирает направление сортировки. Пустая строка — desc.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderDesc:
		return OrderDesc, nil
	case OrderAsc:
		return OrderAsc, nil
	}
	return "", fmt.Errorf("%w: недопустимое направление сортировки %q, допустимые: asc, desc", ErrValidation, s)
}

// MonthFilter — фильтр по году и месяцу создания. Нулевое значение — без фильтра.
type MonthFilter struct {
	Year  int
	Month time.Month
}

// ParseMonth разбирает фильтр месяца: "", "all", "YYYYMM" или "YYYY-MM".
func ParseMonth(s string) (MonthFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return MonthFilter{}, nil
	}

	compact := s
	if len(s) == 7 && s[4] == '-' {
		compact = s[:4] + s[5:]
	}
	if len(compact) != 6 {
		return MonthFilter{}, fmt.Errorf("%w: неверный формат месяца %q (ожидается YYYYMM или YYYY-MM)", ErrValidation, s)
	}

	year, errY := strconv.Atoi(compact[:4])
	month, errM := strconv.Atoi(compact[4:])
	if errY != nil || errM != nil || year < 1 || month < 1 || month > 12 ||
		strings.ContainsAny(compact, "+-") {
		return MonthFilter{}, fmt.Errorf("%w: неверный формат месяца %q (ожидается YYYYMM или YYYY-MM)", ErrValidation, s)
	}

	return MonthFilter{Year: year, Month: time.Month(month)}, nil
}

// IsAll сообщает, что фильтр не задан.
func (m MonthFilter) IsAll() bool {
	return m.Year == 0
}

// Matches проверяет совпадение года и месяца.
func (m MonthFilter) Matches(t time.Time) bool {
	if m.IsAll() {
		return true
	}
	return t.Year() == m.Year && t.Month() == m.Month
}

// String возвращает "YYYYMM" или "all".
func (m MonthFilter) String() string {
	if m.IsAll() {
		return "all"
	}
	return fmt.Sprintf("%04d%02d", m.Year, int(m.Month))
}

// Query — параметры запроса каталога.
type Query struct {
	// Search — подстрока имени файла без учёта регистра
	Search  string
	Month   MonthFilter
	OrderBy OrderBy
	Order   Order
	// Page — номер страницы с 1; значения < 1 трактуются как 1
	Page int
}

// ListResult — страница каталога.
type ListResult struct {
	Items      []model.ArchiveRecord `json:"items"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	TotalItems int                   `json:"total_items"`
	TotalPages int                   `json:"total_pages"`
	// Skipped — файлы с неканоническими именами, не попавшие в каталог
	Skipped int `json:"skipped"`
}

// MonthOption — месяц, за который есть архивы.
type MonthOption struct {
	// Value — значение фильтра в формате YYYYMM
	Value string `json:"value"`
	// Label — подпись вида "January 2024"
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats — сводка по директории хранения.
type Stats struct {
	Archives    int                     `json:"archives"`
	ByExtension map[model.Extension]int `json:"by_extension"`
	TotalBytes  int64                   `json:"total_bytes"`
	Skipped     int                     `json:"skipped"`
}

// CatalogService — сервис каталога архивов.
type CatalogService struct {
	store          *filestore.FileStore
	downloadPrefix string
	names          *nameCache
	logger         *slog.Logger
}

// NewCatalogService создаёт сервис каталога. downloadPrefix — префикс
// ссылок на скачивание (DUMP_DOWNLOAD_PREFIX).
func NewCatalogService(store *filestore.FileStore, downloadPrefix string, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:          store,
		downloadPrefix: strings.TrimRight(downloadPrefix, "/"),
		names:          newNameCache(nameCacheSize),
		logger:         logger.With(slog.String("component", "catalog_service")),
	}
}

// DownloadURL возвращает ссылку на скачивание архива.
func (s *CatalogService) DownloadURL(filename string) string {
	return s.downloadPrefix + "/" + url.PathEscape(filename) + "/download"
}

// List возвращает страницу каталога по запросу q.
func (s *CatalogService) List(q Query) (*ListResult, error) {
	records, skipped, err := s.scan()
	if err != nil {
		return nil, err
	}

	// Фильтрация
	search := strings.ToLower(q.Search)
	filtered := records[:0]
	for _, rec := range records {
		if search != "" && !strings.Contains(strings.ToLower(rec.Filename), search) {
			continue
		}
		if !q.Month.Matches(rec.Name.CreatedAt) {
			continue
		}
		filtered = append(filtered, rec)
	}

	sortRecords(filtered, q.OrderBy, q.Order)

	// Пагинация
	page := q.Page
	if page < 1 {
		page = 1
	}
	total := len(filtered)
	totalPages := (total + PageSize - 1) / PageSize

	// Сравнение до умножения: (page-1)*PageSize переполняется для огромных page
	items := []model.ArchiveRecord{}
	if page <= totalPages {
		from := (page - 1) * PageSize
		to := min(from+PageSize, total)
		items = append(items, filtered[from:to]...)
	}

	return &ListResult{
		Items:      items,
		Page:       page,
		PerPage:    PageSize,
		TotalItems: total,
		TotalPages: totalPages,
		Skipped:    skipped,
	}, nil
}

// Months возвращает месяцы, за которые есть архивы, от новых к старым.
func (s *CatalogService) Months() ([]MonthOption, error) {
	records, _, err := s.scan()
	if err != nil {
		return nil, err
	}

	counts := make(map[MonthFilter]int)
	for _, rec := range records {
		t := rec.Name.CreatedAt
		counts[MonthFilter{Year: t.Year(), Month: t.Month()}]++
	}

	months := make([]MonthFilter, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	slices.SortFunc(months, func(a, b MonthFilter) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})

	options := make([]MonthOption, 0, len(months))
	for _, m := range months {
		options = append(options, MonthOption{
			Value: m.String(),
			Label: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.Local).Format("January 2006"),
			Count: counts[m],
		})
	}
	return options, nil
}

// Stats возвращает сводку по архивам в директории хранения.
func (s *CatalogService) Stats() (*Stats, error) {
	records, skipped, err := s.scan()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Archives:    len(records),
		ByExtension: make(map[model.Extension]int),
		Skipped:     skipped,
	}
	for _, ext := range model.Extensions() {
		stats.ByExtension[ext] = 0
	}
	for _, rec := range records {
		stats.ByExtension[rec.Name.Extension]++
		stats.TotalBytes += rec.SizeBytes
	}
	return stats, nil
}

// scan перечисляет директорию хранения и строит записи каталога.
// Обновляет бизнес-метрики по результату.
func (s *CatalogService) scan() ([]model.ArchiveRecord, int, error) {
	entries, err := s.store.Entries()
	if err != nil {
		return nil, 0, err
	}

	records := make([]model.ArchiveRecord, 0, len(entries))
	skipped := 0
	byExt := make(map[model.Extension]int)
	var totalBytes int64

	for _, e := range entries {
		name, err := s.names.Decode(e.Name)
		if err != nil {
			skipped++
			s.logger.Debug("Файл пропущен каталогом",
				slog.String("filename", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}

		records = append(records, model.ArchiveRecord{
			Name:        name,
			Filename:    e.Name,
			SizeBytes:   e.Size,
			DownloadURL: s.DownloadURL(e.Name),
		})
		byExt[name.Extension]++
		totalBytes += e.Size
	}

	for _, ext := range model.Extensions() {
		middleware.ArchivesTotal.WithLabelValues(string(ext)).Set(float64(byExt[ext]))
	}
	middleware.StorageBytes.Set(float64(totalBytes))
	middleware.CatalogSkippedEntries.Set(float64(skipped))

	return records, skipped, nil
}

// sortRecords сортирует записи на месте. При равных датах порядок
// определяется именем файла в том же направлении, поэтому asc и desc
// дают строго обратные последовательности.
func sortRecords(records []model.ArchiveRecord, orderBy OrderBy, order Order) {
	if orderBy == "" {
		orderBy = OrderByDateAdded
	}
	if order == "" {
		order = OrderDesc
	}

	slices.SortFunc(records, func(a, b model.ArchiveRecord) int {
		c := 0
		if orderBy == OrderByDateAdded {
			c = a.Name.CreatedAt.Compare(b.Name.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.Filename, b.Filename)
		}
		if order == OrderDesc {
			return -c
		}
		return c
	})
}
