package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room id is unknown.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room already holds the player cap.
	ErrRoomFull = errors.New("room is full")
	// ErrPlayerNotFound is returned when a player id is not in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNoQuestions indicates a question source produced an empty set.
	ErrNoQuestions = errors.New("no questions available")
)
