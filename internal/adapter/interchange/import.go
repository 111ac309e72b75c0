package interchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"github.com/samber/lo"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrMalformed = fmt.Errorf("%w: malformed document", routine.ErrValidation)
)

type Document struct {
	Title       string
	Description string
	StartDate   *routine.Date
	EndDate     *routine.Date
	Exercises   []routine.Exercise
}

type Defaults struct {
	Title       string
	Description string
	StartDate   *routine.Date
	EndDate     *routine.Date
}

func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", errors.Join(ErrUnsupportedFormat, fmt.Errorf("file %q is not .json or .csv", filename))
	}
}

func Import(filename string, content []byte, defaults Defaults) (*Document, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}

	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	var doc *Document
	switch format {
	case FormatJSON:
		doc, err = importJSON(content)
	case FormatCSV:
		doc, err = importCSV(content)
	}
	if err != nil {
		return nil, err
	}

	doc.Exercises = routine.FilterExercises(doc.Exercises)
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = defaults.Title
	}
	if doc.Description == "" {
		doc.Description = defaults.Description
	}
	if doc.StartDate == nil {
		doc.StartDate = defaults.StartDate
	}
	if doc.EndDate == nil {
		doc.EndDate = defaults.EndDate
	}
	return doc, nil
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected a string or a number, got %s", b)
		}
		*s = flexString(n.String())
	}
	return nil
}

type importExercise struct {
	Name     flexString `json:"name"`
	Sets     flexString `json:"sets"`
	Reps     flexString `json:"reps"`
	Weight   flexString `json:"weight"`
	Duration flexString `json:"duration"`
	Notes    flexString `json:"notes"`
}

func (e importExercise) exercise() routine.Exercise {
	return routine.Exercise{
		Name:     strings.TrimSpace(string(e.Name)),
		Sets:     string(e.Sets),
		Reps:     string(e.Reps),
		Weight:   string(e.Weight),
		Duration: string(e.Duration),
		Notes:    string(e.Notes),
	}
}

type importRoutine struct {
	Title       flexString       `json:"title"`
	Description flexString       `json:"description"`
	StartDate   flexString       `json:"start_date"`
	EndDate     flexString       `json:"end_date"`
	Exercises   []importExercise `json:"exercises"`
}

type importDocument struct {
	Routine   *importRoutine   `json:"routine"`
	Exercises []importExercise `json:"exercises"`
}

func importJSON(content []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, errors.Join(ErrMalformed, errors.New("empty file"))
	}

	if trimmed[0] == '[' {
		var exercises []importExercise
		if err := json.Unmarshal(trimmed, &exercises); err != nil {
			return nil, errors.Join(ErrMalformed, err)
		}
		return &Document{Exercises: toExercises(exercises)}, nil
	}

	var in importDocument
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}

	doc := &Document{}
	exercises := in.Exercises
	if in.Routine != nil {
		var err error
		doc.Title = strings.TrimSpace(string(in.Routine.Title))
		doc.Description = string(in.Routine.Description)
		if doc.StartDate, err = optionalDate(string(in.Routine.StartDate)); err != nil {
			return nil, err
		}
		if doc.EndDate, err = optionalDate(string(in.Routine.EndDate)); err != nil {
			return nil, err
		}
		if in.Routine.Exercises != nil {
			exercises = in.Routine.Exercises
		}
	}
	doc.Exercises = toExercises(exercises)
	return doc, nil
}

func toExercises(in []importExercise) []routine.Exercise {
	return lo.Map(in, func(e importExercise, _ int) routine.Exercise {
		return e.exercise()
	})
}

func importCSV(content []byte) (*Document, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrMalformed, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.Join(ErrMalformed, errors.New("empty file"))
	}
	if columns := exerciseColumns(records[0]); columns != nil {
		return &Document{Exercises: exerciseTable(records[1:], columns)}, nil
	}
	if len(records) < 2 {
		return nil, errors.Join(ErrMalformed, errors.New("csv must have a header row and a routine row"))
	}

	row := records[1]
	doc := &Document{
		Title:       strings.TrimSpace(field(row, 0)),
		Description: field(row, 1),
	}
	var err error
	if doc.StartDate, err = optionalDate(field(row, 2)); err != nil {
		return nil, err
	}
	if doc.EndDate, err = optionalDate(field(row, 3)); err != nil {
		return nil, err
	}

	doc.Exercises = exerciseSection(records[2:])
	return doc, nil
}

func exerciseSection(records [][]string) []routine.Exercise {
	start := -1
	for i, rec := range records {
		if isMarker(rec, csvExercisesTitle) {
			start = i + 2
			break
		}
	}
	if start < 0 || start > len(records) {
		return nil
	}

	var exercises []routine.Exercise
	for _, rec := range records[start:] {
		if isMarker(rec, csvAssigneesTitle) {
			break
		}
		exercises = append(exercises, routine.Exercise{
			Name:     strings.TrimSpace(field(rec, 0)),
			Sets:     field(rec, 1),
			Reps:     field(rec, 2),
			Duration: field(rec, 3),
			Notes:    field(rec, 4),
		})
	}
	return exercises
}

func isMarker(rec []string, marker string) bool {
	return len(rec) >= 1 && strings.TrimSpace(rec[0]) == marker && strings.TrimSpace(strings.Join(rec[1:], "")) == ""
}

func exerciseColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil
	}
	return columns
}

func exerciseTable(records [][]string, columns map[string]int) []routine.Exercise {
	get := func(rec []string, name string) string {
		i, ok := columns[name]
		if !ok {
			return ""
		}
		return field(rec, i)
	}

	exercises := make([]routine.Exercise, 0, len(records))
	for _, rec := range records {
		duration := get(rec, "duration")
		exercises = append(exercises, routine.Exercise{
			Name:     strings.TrimSpace(get(rec, "name")),
			Sets:     get(rec, "sets"),
			Reps:     get(rec, "reps"),
			Weight:   get(rec, "weight"),
			Duration: lo.Ternary(duration != "", duration, get(rec, "rest")),
			Notes:    get(rec, "notes"),
		})
	}
	return exercises
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}

func optionalDate(s string) (*routine.Date, error) {
	switch strings.TrimSpace(s) {
	case "null", "undefined":
		return nil, nil
	}
	return routine.ParseOptionalDate(s)
}
