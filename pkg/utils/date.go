package utils

import (
	"log"
	"time"
)

// LocationKST returns the Korean market timezone.
func LocationKST() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return loc
}

// TimeNowKST returns the current time in the Korean market timezone.
func TimeNowKST() time.Time {
	return time.Now().In(LocationKST())
}

// DateOnly truncates a timestamp to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateOnlyKST returns t's calendar date as midnight KST, whatever location t
// carries. DATE columns scan back from Postgres as UTC midnights; this puts
// them on the same footing as KST-derived bounds before any comparison.
func DateOnlyKST(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, LocationKST())
}

// SameDate reports whether two timestamps fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
