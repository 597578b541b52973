package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a thread ID. Thread ids are opaque: a UUID for
// web sessions, a phone number for WhatsApp contacts.
func ValidateThreadID(id string) error {
	if len(id) == 0 {
		return errors.New("thread ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("thread ID exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("thread ID must be valid UTF-8")
	}
	return nil
}
