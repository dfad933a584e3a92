package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrInvalidPeriod      = errors.New("invalid attendance period")
	ErrDayOutOfPeriod     = errors.New("day is outside the selected period")
	ErrNothingToConfirm   = errors.New("no inferred checkout to confirm for this day")
	ErrEmptyImport        = errors.New("import content is empty")
)
