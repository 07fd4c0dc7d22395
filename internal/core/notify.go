package core

import (
	"fmt"
	"strings"
)

// Notification subjects.
const (
	SubjectImportCompleted = "Employee import completed"
	SubjectImportError     = "Employee import error"
	SubjectImportFailed    = "Employee import failed"
)

// summaryBody renders the completion notification.
func summaryBody(s *ImportSummary) string {
	var b strings.Builder
	b.WriteString("Processing completed!\n\n")
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Total lines processed: %d\n", s.TotalLines)
	fmt.Fprintf(&b, "- Employees created successfully: %d\n", s.ProcessedCount)
	fmt.Fprintf(&b, "- Lines with errors: %d\n", s.ErrorCount)

	if len(s.ValidationErrors) > 0 {
		b.WriteString("\nError details:\n")
		for _, msg := range s.ValidationErrors {
			b.WriteString("- ")
			b.WriteString(msg)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// diagnosticBody renders the notification for a file that could not be
// processed at all.
func diagnosticBody(lines []string) string {
	var b strings.Builder
	b.WriteString("Errors occurred while processing the CSV file:\n\n")
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// failureBody renders the notification sent once all attempts are used up.
func failureBody(filePath string, cause error) string {
	var b strings.Builder
	b.WriteString("Processing of the file failed after multiple attempts.\n\n")
	if cause != nil {
		fmt.Fprintf(&b, "Error: %s\n", cause.Error())
		if IsUserFacing(cause) {
			fmt.Fprintf(&b, "What to do: %s\n", FormatUserError(cause))
		}
	}
	fmt.Fprintf(&b, "File: %s\n", filePath)
	return b.String()
}
