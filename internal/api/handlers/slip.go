package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/pkg/utils"
)

// renderSlip produces a one-page appointment confirmation
func renderSlip(clinicName string, view *entities.AppointmentView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("Appointment %d", view.AppointmentID), true)
	pdf.AddPage()

	// Core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(clinicName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "Appointment Slip", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addSlipRow(pdf, "Appointment ID", fmt.Sprintf("%d", view.AppointmentID))
	addSlipRow(pdf, "Doctor", tr(orDash(view.DoctorName)))
	addSlipRow(pdf, "Patient", tr(orDash(view.PatientName)))
	if view.PatientContact.FullMobile != nil {
		addSlipRow(pdf, "Mobile", *view.PatientContact.FullMobile)
	}
	addSlipRow(pdf, "Date", view.Date.Format(utils.DateLayout))
	addSlipRow(pdf, "Time", view.StartTime+" - "+view.EndTime)
	addSlipRow(pdf, "Status", string(view.Status))

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format(time.RFC1123), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addSlipRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(50, 9, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 9, value, "1", 1, "", false, 0, "")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
