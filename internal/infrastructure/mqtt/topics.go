package mqtt

import "strings"

// Topics provides builders for the board's MQTT topics.
//
// Every topic is rooted at the board identifier. App Inventor clients publish
// commands to the bare identifier, so the command topic has no hierarchy:
//
//	topics := mqtt.Topics{}
//	topics.BoardCommands("3f2c...")  // "3f2c..."
//	topics.BoardEvents("3f2c...")    // "3f2c.../events"
type Topics struct{}

// BoardCommands returns the topic the board subscribes to for commands.
func (Topics) BoardCommands(token string) string {
	return token
}

// BoardEvents returns the topic the board publishes pin events on.
// It is kept apart from the command topic so the board never receives
// its own reports.
func (Topics) BoardEvents(token string) string {
	return token + "/events"
}

// BoardStatus returns the retained online/offline status topic.
func (Topics) BoardStatus(token string) string {
	return token + "/status"
}

// validateBoardTopic rejects topics that cannot be used as a single
// concrete subscription.
func validateBoardTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#\x00") {
		return ErrInvalidTopic
	}
	return nil
}
