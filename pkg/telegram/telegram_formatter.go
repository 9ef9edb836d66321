package telegram

import (
	"fmt"
	"time"
)

// FormatRunFailureMessage formats a verification run failure alert.
func FormatRunFailureMessage(runDate time.Time, market string, detail string) string {
	return fmt.Sprintf("🚨 *Verification Run Failed*\n📅 %s\n🏛 Market: %s\n❗ %s",
		runDate.Format("2006-01-02"), market, detail)
}

// FormatRunSummaryMessage formats a completed verification run summary.
func FormatRunSummaryMessage(runDate time.Time, market string, verified, failed int, duration time.Duration) string {
	return fmt.Sprintf("✅ *Verification Run Completed*\n📅 %s\n🏛 Market: %s\n📊 Verified: %d | Failed: %d\n⏱ %.1fs",
		runDate.Format("2006-01-02"), market, verified, failed, duration.Seconds())
}

// FormatErrorAlertMessage formats a generic operational error alert.
func FormatErrorAlertMessage(at time.Time, message string) string {
	return fmt.Sprintf("⚠️ *Pipeline Alert*\n🕐 %s\n%s", at.Format("2006-01-02 15:04:05"), message)
}
