// Package export renders round results as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/stemsi/result-portal/internal/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the results workbook.
const (
	ResultsSheet  = "성적"
	SubjectsSheet = "과목"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteRoundResults writes one row per student of round to w. Unavailable
// results keep only their student id.
func WriteRoundResults(w io.Writer, layout *model.ExamLayout, round model.Round, results []model.RoundResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"수험번호", "출석", "결시 교시"}
	for _, s := range layout.Subjects {
		header = append(header, string(s.Code))
	}
	header = append(header, "총점")
	for _, g := range layout.Groups {
		header = append(header, g.Name+" (%)")
	}
	header = append(header, "판정", "사유", "석차", "백분위")

	if err := setRow(f, ResultsSheet, 1, header); err != nil {
		return err
	}

	for i, r := range results {
		if err := setRow(f, ResultsSheet, i+2, resultRow(layout, r)); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(ResultsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(ResultsSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if err := writeSubjects(f, layout); err != nil {
		return err
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: round.Label}); err != nil {
		return fmt.Errorf("set doc props: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func resultRow(layout *model.ExamLayout, r model.RoundResult) []any {
	row := []any{r.StudentID}
	if !r.Available {
		return append(row, "조회 불가")
	}

	missed := ""
	for i, s := range r.MissedSessions {
		if i > 0 {
			missed += ", "
		}
		missed += string(s)
	}
	row = append(row, attendanceLabel(r.Attendance), missed)

	for _, s := range layout.Subjects {
		row = append(row, r.SubjectScores[s.Code])
	}
	row = append(row, r.TotalScore)

	rates := make(map[string]int, len(r.Groups))
	for _, g := range r.Groups {
		rates[g.Name] = g.Rate
	}
	for _, g := range layout.Groups {
		row = append(row, rates[g.Name])
	}

	verdict := "불합격"
	if r.Pass {
		verdict = "합격"
	}
	row = append(row, verdict, string(r.Reason))

	if r.Rank != nil && r.Rank.Rank != nil {
		row = append(row, *r.Rank.Rank, *r.Rank.Percentile)
	} else {
		row = append(row, "-", "-")
	}
	return row
}

func writeSubjects(f *excelize.File, layout *model.ExamLayout) error {
	if _, err := f.NewSheet(SubjectsSheet); err != nil {
		return fmt.Errorf("create subjects sheet: %w", err)
	}
	if err := setRow(f, SubjectsSheet, 1, []any{"코드", "과목", "만점", "영역"}); err != nil {
		return err
	}

	groupOf := make(map[model.SubjectCode]string)
	for _, g := range layout.Groups {
		for _, code := range g.Subjects {
			groupOf[code] = g.Name
		}
	}
	for i, s := range layout.Subjects {
		if err := setRow(f, SubjectsSheet, i+2, []any{string(s.Code), s.Name, s.Max, groupOf[s.Code]}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func attendanceLabel(a model.AttendanceStatus) string {
	switch a {
	case model.AttendanceFull:
		return "전체 응시"
	case model.AttendancePartial:
		return "일부 응시"
	default:
		return "미응시"
	}
}
