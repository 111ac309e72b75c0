package interchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/domain/routine"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", errors.Join(ErrUnsupportedFormat, errors.New("format "+s+" is not json or csv"))
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type File struct {
	Content     []byte
	Filename    string
	ContentType string
}

type exportDocument struct {
	Routine       exportRoutine `json:"routine"`
	AssignedUsers []Assignee    `json:"assigned_users"`
}

type exportRoutine struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	StartDate   *routine.Date      `json:"start_date"`
	EndDate     *routine.Date      `json:"end_date"`
	Exercises   []routine.Exercise `json:"exercises"`
}

func Export(r *routine.Routine, assignees []Assignee, format Format) (*File, error) {
	var (
		content []byte
		err     error
	)

	switch format {
	case FormatJSON:
		content, err = exportJSON(r, assignees)
	case FormatCSV:
		content = exportCSV(r, assignees)
	default:
		return nil, errors.Join(ErrUnsupportedFormat, errors.New("format "+string(format)+" is not json or csv"))
	}
	if err != nil {
		return nil, err
	}

	return &File{
		Content:     content,
		Filename:    r.Title + "." + string(format),
		ContentType: format.ContentType(),
	}, nil
}

func exportJSON(r *routine.Routine, assignees []Assignee) ([]byte, error) {
	doc := exportDocument{
		Routine: exportRoutine{
			Title:       r.Title,
			Description: r.Description,
			StartDate:   r.StartDate,
			EndDate:     r.EndDate,
			Exercises:   r.Exercises,
		},
		AssignedUsers: assignees,
	}
	if doc.Routine.Exercises == nil {
		doc.Routine.Exercises = []routine.Exercise{}
	}
	if doc.AssignedUsers == nil {
		doc.AssignedUsers = []Assignee{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

const (
	csvRoutineHeader   = "Titulo,Descripción,Fecha Inicio,Fecha Fin"
	csvExercisesTitle  = "Ejercicios"
	csvExercisesHeader = "Nombre,Series,Repeticiones,Duracion,Notas"
	csvAssigneesTitle  = "Usuarios Asignados"
	csvAssigneesHeader = "Nombre"
)

// Every value is quoted, which encoding/csv cannot be told to do.
func exportCSV(r *routine.Routine, assignees []Assignee) []byte {
	var b strings.Builder

	line := func(values ...string) {
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(v))
		}
		b.WriteByte('\n')
	}

	b.WriteString(csvRoutineHeader + "\n")
	line(r.Title, r.Description, optional(r.StartDate), optional(r.EndDate))

	b.WriteString("\n" + csvExercisesTitle + "\n")
	b.WriteString(csvExercisesHeader + "\n")
	for _, e := range r.Exercises {
		line(e.Name, e.Sets, e.Reps, e.Duration, e.Notes)
	}

	b.WriteString("\n" + csvAssigneesTitle + "\n")
	b.WriteString(csvAssigneesHeader + "\n")
	for _, a := range assignees {
		line(a.Name)
	}

	return []byte(b.String())
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func optional(d *routine.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
