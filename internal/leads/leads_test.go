package leads

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `Name,Company,Title,Source,Action Taken,Next Step,Status Stage,Sales Rep,Notes,Due Date,Action Date,Days Since Action
Priya Nair,Acme,CTO,LinkedIn,Sent connection request,Follow up,New,Asha,,2024-01-20,2024-01-15,3
Rahul Menon, Globex ,VP Sales,Referral,Had a discussion about pricing,Send quote,Contacted,Asha,warm,,2024-01-16,
,,,,,,,,,,,
Dana Scully,Initech,Director,Event,Sent proposal,Await reply,Proposal Sent,Ben,,,not a date,
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadCSV(t *testing.T) {
	tbl, err := Load(writeFile(t, "leads.csv", sampleCSV), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultSheet, tbl.Sheet)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 1, tbl.Skipped)

	first := tbl.Rows[0]
	assert.Equal(t, "Priya Nair", first.Name)
	assert.Equal(t, StageNew, first.StatusStage)
	assert.Equal(t, "Asha", first.SalesRep)
	assert.Equal(t, "3", first.Field("days since action"))

	// surrounding whitespace is trimmed
	assert.Equal(t, "Globex", tbl.Rows[1].Company)
	assert.Equal(t, []string{"Asha", "Ben"}, tbl.Reps())
	assert.Len(t, tbl.ForRep("Asha"), 2)
	assert.Empty(t, tbl.ForRep("asha"))

	assert.Len(t, tbl.Head(2), 2)
	assert.Len(t, tbl.Head(0), 3)
	assert.Len(t, tbl.Head(10), 3)
	var none *Table
	assert.Nil(t, none.Head(5))
}

func TestLoadCSVRequiresSalesRep(t *testing.T) {
	_, err := Load(writeFile(t, "bad.csv", "Name,Company\nA,B\n"), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load(writeFile(t, "leads.json", "{}"), "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Load(writeFile(t, "leads.xls", "binary"), "")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "re-save the file as .xlsx")
}

func TestActionTime(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"2024-01-15", true, "2024-01-15"},
		{"2024/01/15", true, "2024-01-15"},
		{"2024-01-15 10:30", true, "2024-01-15"},
		{"45306", true, "2024-01-15"},
		{"03/04/2025", true, "2025-03-04"},
		{"3/4/2025", true, "2025-03-04"},
		{"13/01/2024", true, "2024-01-13"},
		{"2025-01-15T10:30:00", true, "2025-01-15"},
		{"2025-01-15T10:30", true, "2025-01-15"},
		{"2025-01-15T10:30:00.250", true, "2025-01-15"},
		{"", false, ""},
		{"soon", false, ""},
	}
	for _, c := range cases {
		got, ok := Lead{ActionDate: c.in}.ActionTime()
		assert.Equal(t, c.ok, ok, c.in)
		if ok {
			assert.Equal(t, c.want, got.Format("2006-01-02"), c.in)
		}
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024-03-01", FormatDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01 09:15", FormatDate(time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)))
}

func writeWorkbook(t *testing.T, sheet string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)

	header := []any{"Name", "Company", "Status Stage", "Sales Rep", "Action Taken", "Action Date"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row2 := []any{"Priya Nair", "Acme", "New", "Asha", "Sent connection request", 45306}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row2))
	row3 := []any{"Rahul Menon", "Globex", "Closed Won", "Asha", "cold call", "2024-01-16"}
	require.NoError(t, f.SetSheetRow(sheet, "A3", &row3))

	p := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestLoadXLSX(t *testing.T) {
	p := writeWorkbook(t, DefaultSheet)

	sheets, err := Sheets(p)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSheet, "Notes"}, sheets)

	tbl, err := Load(p, "")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "2024-01-15", tbl.Rows[0].ActionDate)
	assert.Equal(t, "2024-01-16", tbl.Rows[1].ActionDate)
	assert.Equal(t, StageClosedWon, tbl.Rows[1].StatusStage)
}

func TestLoadXLSXMissingSheet(t *testing.T) {
	p := writeWorkbook(t, "Leads")
	_, err := Load(p, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSheetNotFound)
	assert.Contains(t, err.Error(), "Leads")

	tbl, err := Load(p, "leads")
	require.NoError(t, err)
	assert.Equal(t, "Leads", tbl.Sheet)
}

func TestFindLead(t *testing.T) {
	tbl, err := Load(writeFile(t, "leads.csv", sampleCSV), "")
	require.NoError(t, err)

	l, err := tbl.FindLead("Asha", "  priya nair ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", l.Company)

	_, err = tbl.FindLead("Asha", "Priya Nayr")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLeadNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"Priya Nair"}, nf.Suggestions)

	// leads owned by another rep are not candidates
	_, err = tbl.FindLead("Asha", "Dana Scully")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
