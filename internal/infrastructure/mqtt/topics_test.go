package mqtt

import (
	"errors"
	"testing"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.BoardCommands(testToken); got != testToken {
		t.Errorf("BoardCommands() = %q, want the bare token", got)
	}
	if got := topics.BoardEvents(testToken); got != testToken+"/events" {
		t.Errorf("BoardEvents() = %q", got)
	}
	if got := topics.BoardStatus(testToken); got != testToken+"/status" {
		t.Errorf("BoardStatus() = %q", got)
	}
	if topics.BoardEvents(testToken) == topics.BoardCommands(testToken) {
		t.Error("events must not be published on the command topic")
	}
}

func TestValidateBoardTopic(t *testing.T) {
	for _, topic := range []string{"", "a/+/b", "a/#", "bad\x00topic"} {
		if err := validateBoardTopic(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("validateBoardTopic(%q) = %v, want ErrInvalidTopic", topic, err)
		}
	}
	if err := validateBoardTopic(testToken); err != nil {
		t.Errorf("validateBoardTopic(token) = %v", err)
	}
}
