package study

import (
	"errors"

	"github.com/f3rmion/shinkei/internal/notify"
)

var (
	// ErrInvalidRating is returned for ratings outside Again..Easy.
	ErrInvalidRating = notify.NewError(notify.LevelWarning, "study: invalid rating")

	// ErrNoCurrentCard is returned when there is no card left to rate.
	ErrNoCurrentCard = errors.New("study: no current card")

	// ErrSessionFinished is returned by operations on a completed session.
	ErrSessionFinished = errors.New("study: session finished")

	// ErrSubmissionInFlight is returned when a rating is still being saved.
	ErrSubmissionInFlight = notify.NewError(notify.LevelInfo, "study: previous rating is still being saved")
)
