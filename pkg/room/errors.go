package room

import "errors"

var (
	// ErrInvalidInput marks a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")

	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")

	// ErrNoSkillPoints is returned when spending with an empty skill point pool.
	ErrNoSkillPoints = errors.New("no skill points available")
)

// IsNotFound reports whether err means a room or player is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrPlayerNotFound)
}

// IsInvalid reports whether err is a client-side input problem.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNoSkillPoints)
}
