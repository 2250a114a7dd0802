package notifications

import (
	"fmt"
	"strings"
	"time"
)

const confirmationSubject = "Appointment Confirmation"

func confirmationBody(in AppointmentConfirmationInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", in.Name)
	b.WriteString("Your appointment has been successfully booked!\r\n\r\n")
	b.WriteString("Details:\r\n")
	fmt.Fprintf(&b, "Doctor: %s\r\n", in.Doctor)
	if in.Department != "" {
		fmt.Fprintf(&b, "Department: %s\r\n", in.Department)
	}
	fmt.Fprintf(&b, "Date: %s\r\n", in.Date)
	fmt.Fprintf(&b, "Time: %s\r\n\r\n", in.Time)
	b.WriteString("Please arrive 10 minutes before your scheduled time.\r\n")
	b.WriteString("If you need to reschedule, please contact us at least 24 hours in advance.\r\n\r\n")
	b.WriteString("Best regards,\r\n")
	b.WriteString("Hospital Management Team\r\n")

	return b.String()
}

// buildMessage renders a plain text RFC 5322 message. Header values are
// stripped of CR/LF so user input cannot inject headers.
func buildMessage(from, to string, in AppointmentConfirmationInput, now time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", headerSafe(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", confirmationSubject)
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(confirmationBody(in))

	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
