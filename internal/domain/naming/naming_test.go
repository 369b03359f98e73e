package naming

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/dump-module/internal/domain/model"
)

// TestEncode проверяет формат канонического имени.
func TestEncode(t *testing.T) {
	ts := time.Date(2024, 1, 15, 14, 30, 22, 0, time.Local)

	got := Encode("themes", ts, model.ExtZip)
	if got != "themes_20240115_143022.zip" {
		t.Errorf("ожидалось themes_20240115_143022.zip, получено %s", got)
	}
}

// TestEncode_TwentyFourHourClock проверяет, что время пишется в 24-часовом формате.
func TestEncode_TwentyFourHourClock(t *testing.T) {
	ts := time.Date(2024, 1, 15, 21, 5, 9, 0, time.Local)

	got := Encode("database", ts, model.ExtSQL)
	if got != "database_20240115_210509.sql" {
		t.Errorf("неожиданное имя: %s", got)
	}
}

// TestRoundTrip проверяет Decode(Encode(B, T, ext)) == (B, T, ext).
func TestRoundTrip(t *testing.T) {
	bases := []string{"themes", "my-backup", "site.v2", "Résumé", "дамп"}
	times := []time.Time{
		time.Date(2024, 1, 15, 14, 30, 22, 0, time.Local),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.Local),
		time.Date(2030, 6, 1, 0, 0, 0, 0, time.Local),
	}

	for _, base := range bases {
		for _, ts := range times {
			for _, ext := range model.Extensions() {
				filename := Encode(base, ts, ext)

				got, err := Decode(filename)
				if err != nil {
					t.Fatalf("Decode(%q): %v", filename, err)
				}
				if got.BaseName != base {
					t.Errorf("%s: base %q, ожидалось %q", filename, got.BaseName, base)
				}
				if !got.CreatedAt.Equal(ts) {
					t.Errorf("%s: время %v, ожидалось %v", filename, got.CreatedAt, ts)
				}
				if got.Extension != ext {
					t.Errorf("%s: расширение %q, ожидалось %q", filename, got.Extension, ext)
				}
				if got.Filename() != filename {
					t.Errorf("Filename() = %q, ожидалось %q", got.Filename(), filename)
				}
			}
		}
	}
}

// TestNew_TruncatesToSeconds проверяет усечение времени до секунд.
func TestNew_TruncatesToSeconds(t *testing.T) {
	ts := time.Date(2024, 1, 15, 14, 30, 22, 999_000_000, time.Local)

	name := New("x", ts, model.ExtZip)
	if name.CreatedAt.Nanosecond() != 0 {
		t.Errorf("ожидались нулевые наносекунды, получено %d", name.CreatedAt.Nanosecond())
	}
}

// TestDecode_Errors проверяет классификацию ошибок разбора.
func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     error
	}{
		{"неверное расширение", "name_20240101_120000.txt", ErrInvalidExtension},
		{"без расширения", "name_20240101_120000", ErrInvalidExtension},
		{"расширение в верхнем регистре", "name_20240101_120000.ZIP", ErrInvalidExtension},
		{"четыре сегмента", "a_b_c_d.zip", ErrInvalidFormat},
		{"один сегмент", "ab.zip", ErrInvalidFormat},
		{"два сегмента", "name_20240101.zip", ErrInvalidFormat},
		{"пустое имя", "_20240101_120000.zip", ErrInvalidFormat},
		{"семь цифр даты", "name_2024011_120000.zip", ErrInvalidDate},
		{"буквы в дате", "name_2024O101_120000.zip", ErrInvalidDate},
		{"несуществующий месяц", "name_20241301_120000.zip", ErrInvalidDate},
		{"несуществующий день", "name_20240230_120000.zip", ErrInvalidDate},
		{"пять цифр времени", "name_20240101_12000.zip", ErrInvalidTime},
		{"семь цифр времени", "name_20240101_1200000.sql", ErrInvalidTime},
		{"час 24", "name_20240101_240000.sql", ErrInvalidTime},
		{"минута 60", "name_20240101_126000.sql", ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.filename)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%q): ожидалась ошибка %v, получено %v", tt.filename, tt.want, err)
			}
			if got != (model.ArchiveName{}) {
				t.Errorf("при ошибке не должен возвращаться частичный результат: %+v", got)
			}

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) || decodeErr.Filename != tt.filename {
				t.Errorf("ожидалась DecodeError с именем %q", tt.filename)
			}
		})
	}
}

// TestDecode_Valid проверяет разбор корректного имени.
func TestDecode_Valid(t *testing.T) {
	got, err := Decode("themes_20240115_143022.zip")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	want := time.Date(2024, 1, 15, 14, 30, 22, 0, time.Local)
	if got.BaseName != "themes" || got.Extension != model.ExtZip || !got.CreatedAt.Equal(want) {
		t.Errorf("неожиданный результат: %+v", got)
	}
}

// TestSanitize проверяет санитизацию базового имени.
func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"themes", "themes"},
		{"custom_dump", "custom-dump"},
		{"my backup  2024", "my-backup-2024"},
		{"../../etc/passwd", "etcpasswd"},
		{"a/b\\c", "abc"},
		{"___", "dump"},
		{"", "dump"},
		{"<>:\"|?*", "dump"},
		{"-.hidden.-", "hidden"},
		{"site.v2", "site.v2"},
		{"Кириллица", "Кириллица"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

// TestSanitize_NoUnderscores проверяет, что результат всегда разбирается на 3 сегмента.
func TestSanitize_NoUnderscores(t *testing.T) {
	inputs := []string{"a_b_c", "_x_", "snake_case_name", "  __  "}
	ts := time.Date(2024, 5, 5, 5, 5, 5, 0, time.Local)

	for _, in := range inputs {
		s := Sanitize(in)
		if strings.Contains(s, "_") {
			t.Errorf("Sanitize(%q) = %q содержит '_'", in, s)
		}
		if !IsValid(Encode(in, ts, model.ExtZip)) {
			t.Errorf("имя из %q не проходит Decode", in)
		}
	}
}

// TestSanitize_LengthLimit проверяет ограничение длины.
func TestSanitize_LengthLimit(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 500))
	if len([]rune(got)) != maxBaseNameLen {
		t.Errorf("ожидалась длина %d, получено %d", maxBaseNameLen, len([]rune(got)))
	}
}
